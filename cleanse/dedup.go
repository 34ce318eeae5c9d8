package cleanse

import "time"

// latestPerKey keeps one record per key: the one with the latest date. Nil
// dates lose against any date; ties keep the earliest input row. The result
// is ordered by each key's first appearance.
func latestPerKey[T any](records []T, key func(T) string, date func(T) *time.Time) []T {
	pos := make(map[string]int, len(records))
	out := make([]T, 0, len(records))

	for _, rec := range records {
		k := key(rec)
		i, seen := pos[k]
		if !seen {
			pos[k] = len(out)
			out = append(out, rec)
			continue
		}
		if later(date(rec), date(out[i])) {
			out[i] = rec
		}
	}
	return out
}

// firstPerKey keeps the first record of each key, in input order.
func firstPerKey[T any](records []T, key func(T) string) []T {
	seen := make(map[string]struct{}, len(records))
	out := make([]T, 0, len(records))

	for _, rec := range records {
		k := key(rec)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, rec)
	}
	return out
}

func later(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return a.After(*b)
	}
}
