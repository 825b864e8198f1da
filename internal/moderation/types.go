// Package moderation is the adapter to the external text-classification
// collaborator. Every chat message crosses this gate before it may be
// forwarded or archived; signaling and lifecycle envelopes never do.
package moderation

import "context"

// Analysis is the bundle attached to an accepted message.
type Analysis struct {
	Toxicity    float64 `json:"toxicity"`
	HateSpeech  bool    `json:"hate_speech"`
	Rating      float64 `json:"rating"`
	Reasoning   string  `json:"reasoning"`
	FactChecked bool    `json:"fact_checked"` // placeholder, always false
}

// Verdict is the outcome of moderating one message: either a rejection with
// a reason (message dropped, never forwarded or archived) or an acceptance
// with the analysis bundle.
type Verdict struct {
	Accepted bool
	Reason   string // set when rejected; propagated verbatim to the sender
	Analysis Analysis
}

// Analyzer is the moderation collaborator interface consumed by the relay.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (*Verdict, error)
}
