package ui

import "github.com/bamsammich/hardlink-dedup/internal/event"

// quietPresenter consumes events but produces no output.
type quietPresenter struct{}

func (p *quietPresenter) Run(events <-chan event.Event) error {
	//nolint:revive // empty-block: draining so the engine never blocks
	for range events {
	}
	return nil
}

func (p *quietPresenter) Summary() string {
	return ""
}
