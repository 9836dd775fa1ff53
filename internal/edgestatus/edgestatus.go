// Package edgestatus implements the persistent failure/usage tracker:
// which interfaces the current derivation assumes failed and which it has
// already used, under the global failure bound.
package edgestatus

import (
	"sort"

	"github.com/aalwines/verifier/internal/routingtable"
)

// EdgeStatus tracks, for one candidate execution path, which interfaces are
// assumed failed and which are already known to be in use. Persistent:
// Next never mutates the receiver, it returns a new value.
type EdgeStatus struct {
	failed []routingtable.Interface // sorted, unique
	used   []routingtable.Interface // sorted, unique
}

// Zero is the empty status: nothing failed, nothing used.
var Zero = EdgeStatus{}

func idOf(i routingtable.Interface) uint64 { return i.GlobalID() }

func less(a, b routingtable.Interface) bool { return idOf(a) < idOf(b) }

func contains(set []routingtable.Interface, i routingtable.Interface) bool {
	idx := sort.Search(len(set), func(k int) bool { return !less(set[k], i) })
	return idx < len(set) && set[idx] == i
}

func addToSet(set []routingtable.Interface, elem routingtable.Interface) []routingtable.Interface {
	idx := sort.Search(len(set), func(k int) bool { return !less(set[k], elem) })
	if idx < len(set) && set[idx] == elem {
		return set // already present
	}
	next := make([]routingtable.Interface, 0, len(set)+1)
	next = append(next, set[:idx]...)
	next = append(next, elem)
	next = append(next, set[idx:]...)
	return next
}

func sortedUnion(a, b []routingtable.Interface) []routingtable.Interface {
	out := make([]routingtable.Interface, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case less(a[i], b[j]):
			out = append(out, a[i])
			i++
		case less(b[j], a[i]):
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

func isDisjoint(a, b []routingtable.Interface) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case less(a[i], b[j]):
			i++
		case less(b[j], a[i]):
			j++
		default:
			return false
		}
	}
	return true
}

// Next computes the status after choosing `rule` out of `entry`. Returns
// ok=false when the choice is inconsistent under the k-failure bound.
func (s EdgeStatus) Next(entry routingtable.Entry, rule routingtable.Rule, maxFailures uint32) (EdgeStatus, bool) {
	// 1. Cannot use an interface already assumed failed.
	if contains(s.failed, rule.Via) {
		return EdgeStatus{}, false
	}

	// 2. Gather siblings with strictly higher priority (smaller number).
	var newFailed []routingtable.Interface
	for _, other := range entry.Rules {
		if other.Priority < rule.Priority {
			newFailed = addToSet(newFailed, other.Via)
		}
	}
	if len(newFailed) == 0 {
		return EdgeStatus{failed: s.failed, used: addToSet(s.used, rule.Via)}, true
	}

	// 3. Check the |failed| <= k bound.
	nextFailed := sortedUnion(newFailed, s.failed)
	if uint32(len(nextFailed)) > maxFailures {
		return EdgeStatus{}, false
	}

	// 4. Failed and used must stay disjoint.
	nextUsed := addToSet(s.used, rule.Via)
	if !isDisjoint(newFailed, nextUsed) {
		return EdgeStatus{}, false
	}

	// 5.
	return EdgeStatus{failed: nextFailed, used: nextUsed}, true
}

// Failed returns the interfaces currently assumed failed.
func (s EdgeStatus) Failed() []routingtable.Interface { return s.failed }

// Used returns the interfaces currently known to be in use.
func (s EdgeStatus) Used() []routingtable.Interface { return s.used }

// SoundnessCheck asserts sorted-unique sequences, disjointness, and the
// size bound; intended for use in tests and debug assertions.
func (s EdgeStatus) SoundnessCheck(maxFailures uint32) bool {
	if !sortedUniqueIDs(s.failed) || !sortedUniqueIDs(s.used) {
		return false
	}
	if uint32(len(s.failed)) > maxFailures {
		return false
	}
	return isDisjoint(s.failed, s.used)
}

func sortedUniqueIDs(set []routingtable.Interface) bool {
	for i := 1; i < len(set); i++ {
		if !less(set[i-1], set[i]) {
			return false
		}
	}
	return true
}
