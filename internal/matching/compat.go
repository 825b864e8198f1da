package matching

import "github.com/crosstalk/debate-app/internal/session"

// EligiblePair reports whether two sessions from the same bucket may be
// paired. Bucketing already guarantees equal policy and compatible language
// preferences; this evaluates the nationality constraint and the
// policy-specific compatibility predicate.
func EligiblePair(a, b *session.Session) bool {
	if !nationalityOK(a, b) {
		return false
	}

	switch a.Preferences.Policy {
	case session.PolicyRandom:
		return true
	case session.PolicySimilar:
		return similarCompatible(a, b)
	case session.PolicyOpposite:
		return oppositeCompatible(a, b)
	case session.PolicyTopic:
		return topicCompatible(a, b)
	default:
		return false
	}
}

// nationalityOK evaluates the nationality constraint. A declared nationality
// preference is checked against the peer's *profile* nationality, not the
// peer's preference — each direction independently. A session with no
// declared preference accepts any peer. This asymmetry is intentional: "I
// want to talk to Canadians" constrains who the peer is, not what the peer
// wants.
func nationalityOK(a, b *session.Session) bool {
	if p := a.Preferences.Nationality; p != "" && p != b.Profile.Nationality {
		return false
	}
	if p := b.Preferences.Nationality; p != "" && p != a.Profile.Nationality {
		return false
	}
	return true
}

// similarCompatible: ideological stance and personality type both equal.
func similarCompatible(a, b *session.Session) bool {
	return a.Profile.Stance == b.Profile.Stance &&
		a.Profile.Personality == b.Profile.Personality
}

// oppositeCompatible: ideological stance differs.
func oppositeCompatible(a, b *session.Session) bool {
	return a.Profile.Stance != b.Profile.Stance
}

// topicCompatible: there exists at least one topic both selected on which
// their declared stances differ — a for/against debate pairing. Topics only
// one side selected are irrelevant; a shared topic with the same stance does
// not qualify.
func topicCompatible(a, b *session.Session) bool {
	stances := make(map[string]string, len(a.Preferences.Topics))
	for _, t := range a.Preferences.Topics {
		stances[t.TopicID] = t.Stance
	}
	for _, t := range b.Preferences.Topics {
		if s, ok := stances[t.TopicID]; ok && s != t.Stance {
			return true
		}
	}
	return false
}
