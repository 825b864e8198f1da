package matching

import (
	"testing"

	"github.com/crosstalk/debate-app/internal/session"
)

func newSession(identity, policy string) *session.Session {
	return &session.Session{
		Identity:    identity,
		Preferences: session.Preferences{Policy: policy},
	}
}

func TestEligiblePair_Random(t *testing.T) {
	a := newSession("a", session.PolicyRandom)
	b := newSession("b", session.PolicyRandom)
	a.Profile = session.Profile{Stance: "progressive", Personality: "INTJ"}
	b.Profile = session.Profile{Stance: "conservative", Personality: "ENFP"}

	if !EligiblePair(a, b) {
		t.Error("random policy should pair any two profiles")
	}
}

func TestEligiblePair_Similar(t *testing.T) {
	a := newSession("a", session.PolicySimilar)
	b := newSession("b", session.PolicySimilar)

	a.Profile = session.Profile{Stance: "progressive", Personality: "INTJ"}
	b.Profile = session.Profile{Stance: "progressive", Personality: "INTJ"}
	if !EligiblePair(a, b) {
		t.Error("equal stance and personality should pair under similar")
	}

	b.Profile.Personality = "ENFP"
	if EligiblePair(a, b) {
		t.Error("differing personality should not pair under similar")
	}

	b.Profile = session.Profile{Stance: "conservative", Personality: "INTJ"}
	if EligiblePair(a, b) {
		t.Error("differing stance should not pair under similar")
	}
}

func TestEligiblePair_Opposite(t *testing.T) {
	a := newSession("a", session.PolicyOpposite)
	b := newSession("b", session.PolicyOpposite)

	a.Profile.Stance = "progressive"
	b.Profile.Stance = "conservative"
	if !EligiblePair(a, b) {
		t.Error("differing stances should pair under opposite")
	}

	b.Profile.Stance = "progressive"
	if EligiblePair(a, b) {
		t.Error("equal stances should not pair under opposite")
	}
}

func TestEligiblePair_TopicRequiresSharedTopicWithOpposedStances(t *testing.T) {
	a := newSession("a", session.PolicyTopic)
	b := newSession("b", session.PolicyTopic)

	a.Preferences.Topics = []session.TopicSelection{{TopicID: "climate", Stance: session.StanceFor}}
	b.Preferences.Topics = []session.TopicSelection{{TopicID: "climate", Stance: session.StanceAgainst}}
	if !EligiblePair(a, b) {
		t.Error("shared topic with opposed stances should pair")
	}

	// Same stance on the shared topic: no debate to be had.
	b.Preferences.Topics = []session.TopicSelection{{TopicID: "climate", Stance: session.StanceFor}}
	if EligiblePair(a, b) {
		t.Error("shared topic with the same stance should not pair")
	}

	// No shared topic at all.
	b.Preferences.Topics = []session.TopicSelection{{TopicID: "taxes", Stance: session.StanceAgainst}}
	if EligiblePair(a, b) {
		t.Error("disjoint topic selections should not pair")
	}

	// One opposed topic among several is enough.
	a.Preferences.Topics = []session.TopicSelection{
		{TopicID: "climate", Stance: session.StanceFor},
		{TopicID: "taxes", Stance: session.StanceFor},
	}
	b.Preferences.Topics = []session.TopicSelection{
		{TopicID: "climate", Stance: session.StanceFor},
		{TopicID: "taxes", Stance: session.StanceAgainst},
	}
	if !EligiblePair(a, b) {
		t.Error("any shared topic with opposed stances should pair")
	}
}

func TestEligiblePair_NationalityCheckedAgainstPeerProfile(t *testing.T) {
	a := newSession("a", session.PolicyRandom)
	b := newSession("b", session.PolicyRandom)

	// a wants Canadians; b is Canadian but wants nobody in particular.
	a.Preferences.Nationality = "CA"
	b.Profile.Nationality = "CA"
	if !EligiblePair(a, b) {
		t.Error("satisfied one-sided nationality preference should pair")
	}

	// a wants Canadians; b is German.
	b.Profile.Nationality = "DE"
	if EligiblePair(a, b) {
		t.Error("unsatisfied nationality preference should not pair")
	}

	// The check runs against the peer's profile, not the peer's preference:
	// b declaring CA as a preference does not make b Canadian.
	b.Preferences.Nationality = "CA"
	b.Profile.Nationality = "DE"
	a.Profile.Nationality = "CA"
	if EligiblePair(a, b) {
		t.Error("a's preference must match b's profile nationality, not b's preference")
	}

	// Both directions satisfied.
	b.Profile.Nationality = "CA"
	if !EligiblePair(a, b) {
		t.Error("mutually satisfied nationality preferences should pair")
	}
}

func TestEligiblePair_MismatchedPolicyNeverPairs(t *testing.T) {
	a := newSession("a", "best_match")
	b := newSession("b", "best_match")
	if EligiblePair(a, b) {
		t.Error("unknown policy should never pair")
	}
}
