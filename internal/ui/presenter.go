package ui

import (
	"io"

	"github.com/bamsammich/hardlink-dedup/internal/event"
)

// Presenter consumes events and displays progress.
type Presenter interface {
	// Run consumes events until the channel closes. Blocks until done.
	Run(events <-chan event.Event) error
	// Summary returns the final summary line, or "" when there is nothing
	// to show.
	Summary() string
}

// Config configures a Presenter.
type Config struct {
	Writer io.Writer
	IsTTY  bool
	Quiet  bool
}

// NewPresenter creates the appropriate presenter based on configuration.
//
//nolint:ireturn // factory function returns interface by design
func NewPresenter(cfg Config) Presenter {
	if cfg.Quiet {
		return &quietPresenter{}
	}
	return &plainPresenter{w: cfg.Writer, paint: painter(cfg.IsTTY)}
}
