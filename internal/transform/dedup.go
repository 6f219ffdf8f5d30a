// Package transform is the table-derivation engine. Every function here is a
// pure, synchronous operation over in-memory slices: projection, keyed
// de-duplication, sorting, timestamp derivation, the artist hash join and
// surrogate key assignment.
//
// The engine never mutates its inputs and never keeps state between calls, so
// identical inputs always produce identical outputs.
package transform

import "sort"

// Policy selects the winner among records sharing a key.
type Policy string

const (
	// KeepFirst keeps the earliest occurrence (smallest input index).
	KeepFirst Policy = "keep-first"
	// KeepLast keeps the latest occurrence in input order.
	KeepLast Policy = "keep-last"
)

// DeDup collapses records sharing key(r) to a single winner chosen by policy.
// Winners are returned in ascending order of their input index, so the result
// is deterministic for a given input order.
func DeDup[T any, K comparable](in []T, key func(T) K, policy Policy) []T {
	if len(in) == 0 {
		return []T{}
	}

	winners := make(map[K]int, len(in))
	for i, r := range in {
		k := key(r)
		switch policy {
		case KeepFirst:
			if _, exists := winners[k]; !exists {
				winners[k] = i
			}
		default: // KeepLast
			winners[k] = i
		}
	}

	indexes := make([]int, 0, len(winners))
	for _, idx := range winners {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	out := make([]T, 0, len(indexes))
	for _, idx := range indexes {
		out = append(out, in[idx])
	}
	return out
}
