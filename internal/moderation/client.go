package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RejectReason is the reason sent to a sender whose message was flagged.
const RejectReason = "Message rejected by moderation"

// attribute names requested from the comment-analyzer API.
var requestedAttributes = []string{
	"TOXICITY",
	"SEVERE_TOXICITY",
	"IDENTITY_ATTACK",
	"INSULT",
	"PROFANITY",
	"THREAT",
}

// ClientConfig holds settings for the comment-analyzer client.
type ClientConfig struct {
	URL             string        // analyzer endpoint
	APIKey          string        // appended as the key query parameter
	RejectThreshold float64       // any flag attribute above this rejects the message
	HateThreshold   float64       // identity attack / threat level that marks hate speech
	Timeout         time.Duration // per-request timeout
}

// DefaultClientConfig returns sensible production defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		URL:             "https://commentanalyzer.googleapis.com/v1alpha1/comments:analyze",
		RejectThreshold: 0.8,
		HateThreshold:   0.7,
		Timeout:         5 * time.Second,
	}
}

// Client calls the external comment-analyzer HTTP API and converts its
// attribute scores into a Verdict.
type Client struct {
	config ClientConfig
	http   *http.Client
}

// NewClient creates a moderation client with the given configuration.
func NewClient(config ClientConfig) *Client {
	return &Client{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
	}
}

// scores holds the per-attribute summary values returned by the analyzer.
type scores struct {
	Toxicity       float64
	SevereToxicity float64
	IdentityAttack float64
	Insult         float64
	Profanity      float64
	Threat         float64
}

// analyzeRequest is the wire format of the analyzer's request body.
type analyzeRequest struct {
	Comment struct {
		Text string `json:"text"`
	} `json:"comment"`
	Languages           []string                   `json:"languages"`
	RequestedAttributes map[string]json.RawMessage `json:"requestedAttributes"`
}

// analyzeResponse is the subset of the analyzer's response we consume.
type analyzeResponse struct {
	AttributeScores map[string]struct {
		SummaryScore struct {
			Value float64 `json:"value"`
		} `json:"summaryScore"`
	} `json:"attributeScores"`
}

// Analyze submits the text to the analyzer and returns the verdict. A
// transport or decode failure is returned as an error; the caller decides
// how a collaborator outage maps onto the sender-facing envelope.
func (c *Client) Analyze(ctx context.Context, text string) (*Verdict, error) {
	s, err := c.fetchScores(ctx, text)
	if err != nil {
		return nil, err
	}

	flagged := s.Toxicity > c.config.RejectThreshold ||
		s.SevereToxicity > c.config.RejectThreshold ||
		s.IdentityAttack > c.config.RejectThreshold ||
		s.Insult > c.config.RejectThreshold ||
		s.Threat > c.config.RejectThreshold

	if flagged {
		return &Verdict{Accepted: false, Reason: RejectReason}, nil
	}

	hate := s.IdentityAttack > c.config.HateThreshold || s.Threat > c.config.HateThreshold
	rating := 10 - s.Toxicity*10
	if rating < 0 {
		rating = 0
	}

	return &Verdict{
		Accepted: true,
		Analysis: Analysis{
			Toxicity:   s.Toxicity,
			HateSpeech: hate,
			Rating:     rating,
			Reasoning: fmt.Sprintf("Toxicity level at %.2f; hate speech detected: %v. Fact-checking not supported.",
				s.Toxicity, hate),
			FactChecked: false,
		},
	}, nil
}

// fetchScores performs the HTTP round-trip and extracts the summary scores.
func (c *Client) fetchScores(ctx context.Context, text string) (*scores, error) {
	var reqBody analyzeRequest
	reqBody.Comment.Text = text
	reqBody.Languages = []string{"en"}
	reqBody.RequestedAttributes = make(map[string]json.RawMessage, len(requestedAttributes))
	for _, attr := range requestedAttributes {
		reqBody.RequestedAttributes[attr] = json.RawMessage("{}")
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("moderation: marshal request: %w", err)
	}

	url := c.config.URL
	if c.config.APIKey != "" {
		url += "?key=" + c.config.APIKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("moderation: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("moderation: analyzer request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("moderation: analyzer returned %s", resp.Status)
	}

	var body analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("moderation: decode response: %w", err)
	}

	value := func(attr string) float64 {
		return body.AttributeScores[attr].SummaryScore.Value
	}

	return &scores{
		Toxicity:       value("TOXICITY"),
		SevereToxicity: value("SEVERE_TOXICITY"),
		IdentityAttack: value("IDENTITY_ATTACK"),
		Insult:         value("INSULT"),
		Profanity:      value("PROFANITY"),
		Threat:         value("THREAT"),
	}, nil
}
