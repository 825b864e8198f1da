package matching

import "github.com/crosstalk/debate-app/internal/session"

// bucketKey groups sessions that are allowed to see each other during one
// matching pass. Two sessions can only be paired if they declared the same
// policy and the same language preference (both unset counts as a value of
// its own, so an unconstrained user never pairs with one who required a
// language). Nationality is deliberately absent from the key: its check is
// asymmetric — preference against the peer's profile — and therefore cannot
// serve as a grouping value; it is evaluated per candidate pair instead.
type bucketKey struct {
	policy   string
	language string
}

// bucket is a transient, arrival-ordered grouping used only during a single
// matching pass. It is never persisted.
type bucket struct {
	key     bucketKey
	members []*session.Session
}

// partition splits a pool snapshot into buckets, preserving arrival order
// both within each bucket and across buckets (a bucket's position is that of
// its earliest-waiting member), so the overall scan remains deterministic.
func partition(candidates []*session.Session) []*bucket {
	index := make(map[bucketKey]*bucket)
	var ordered []*bucket

	for _, sess := range candidates {
		key := bucketKey{
			policy:   sess.Preferences.Policy,
			language: sess.Preferences.Language,
		}
		b, ok := index[key]
		if !ok {
			b = &bucket{key: key}
			index[key] = b
			ordered = append(ordered, b)
		}
		b.members = append(b.members, sess)
	}
	return ordered
}
