package matching

import "github.com/crosstalk/debate-app/internal/session"

// FindPair scans a pool snapshot for the first eligible pair. Candidates
// must be in arrival order; sessions already in a room must have been
// discarded by the caller. The scan partitions candidates into compatibility
// buckets and, within each bucket, searches for the first eligible candidate
// for the earliest-waiting member. Arrival order is the only tie-break.
//
// Returns false when no pair exists — a pool of one, or buckets with no
// compatible pair, is a terminal state for this pass, not an error. The
// caller re-runs FindPair after applying each match until it returns false,
// so no pairable participant waits behind an earlier unmatched one.
func FindPair(candidates []*session.Session) (a, b *session.Session, found bool) {
	for _, bkt := range partition(candidates) {
		for i := 0; i < len(bkt.members); i++ {
			for j := i + 1; j < len(bkt.members); j++ {
				if EligiblePair(bkt.members[i], bkt.members[j]) {
					return bkt.members[i], bkt.members[j], true
				}
			}
		}
	}
	return nil, nil, false
}
