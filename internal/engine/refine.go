package engine

// refine splits group by key. Output groups keep the first-appearance order
// of both keys and members, and every output group is a subset of group.
// Members whose key cannot be computed (ok == false) are left out.
func refine[K comparable](group []*FileRecord, key func(*FileRecord) (K, bool)) [][]*FileRecord {
	index := make(map[K]int)
	var out [][]*FileRecord
	for _, r := range group {
		k, ok := key(r)
		if !ok {
			continue
		}
		i, seen := index[k]
		if !seen {
			i = len(out)
			index[k] = i
			out = append(out, nil)
		}
		out[i] = append(out[i], r)
	}
	return out
}
