package utils

import (
	"github.com/emirpasic/gods/sets"
	"github.com/emirpasic/gods/sets/hashset"
)

// List2set builds a hashset from list, used wherever membership checks
// matter more than order — e.g. the unlocked-thread set a broadcast step
// consults.
func List2set[T any](list []T) sets.Set {
	set := hashset.New()
	for _, value := range list {
		set.Add(value)
	}
	return set
}
