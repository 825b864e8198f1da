package moderation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// analyzerStub serves canned attribute scores in the analyzer wire format.
func analyzerStub(t *testing.T, attrValues map[string]float64, gotRequest *analyzeRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("analyzer called with %s, want POST", r.Method)
		}
		if gotRequest != nil {
			if err := json.NewDecoder(r.Body).Decode(gotRequest); err != nil {
				t.Errorf("failed to decode analyzer request: %v", err)
			}
		}

		resp := map[string]interface{}{"attributeScores": map[string]interface{}{}}
		attrs := resp["attributeScores"].(map[string]interface{})
		for attr, v := range attrValues {
			attrs[attr] = map[string]interface{}{
				"summaryScore": map[string]interface{}{"value": v},
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func testClient(url string) *Client {
	cfg := DefaultClientConfig()
	cfg.URL = url
	cfg.Timeout = 2 * time.Second
	return NewClient(cfg)
}

func TestAnalyze_AcceptsMildText(t *testing.T) {
	var got analyzeRequest
	srv := analyzerStub(t, map[string]float64{
		"TOXICITY": 0.2,
		"INSULT":   0.1,
	}, &got)
	defer srv.Close()

	verdict, err := testClient(srv.URL).Analyze(context.Background(), "I think you are mistaken")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verdict.Accepted {
		t.Fatalf("mild text rejected: %+v", verdict)
	}
	if verdict.Analysis.Toxicity != 0.2 {
		t.Errorf("toxicity = %v, want 0.2", verdict.Analysis.Toxicity)
	}
	if verdict.Analysis.Rating != 8 {
		t.Errorf("rating = %v, want 8", verdict.Analysis.Rating)
	}
	if verdict.Analysis.HateSpeech {
		t.Error("hate speech flagged for mild text")
	}
	if verdict.Analysis.FactChecked {
		t.Error("fact_checked must always be false")
	}
	want := fmt.Sprintf("Toxicity level at %.2f; hate speech detected: %v. Fact-checking not supported.", 0.2, false)
	if verdict.Analysis.Reasoning != want {
		t.Errorf("reasoning = %q, want %q", verdict.Analysis.Reasoning, want)
	}

	// The request must carry the text and ask for all attributes.
	if got.Comment.Text != "I think you are mistaken" {
		t.Errorf("analyzer received text %q", got.Comment.Text)
	}
	for _, attr := range requestedAttributes {
		if _, ok := got.RequestedAttributes[attr]; !ok {
			t.Errorf("attribute %s not requested", attr)
		}
	}
}

func TestAnalyze_RejectsAboveThreshold(t *testing.T) {
	srv := analyzerStub(t, map[string]float64{"TOXICITY": 0.95}, nil)
	defer srv.Close()

	verdict, err := testClient(srv.URL).Analyze(context.Background(), "unacceptable")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.Accepted {
		t.Fatal("highly toxic text accepted")
	}
	if verdict.Reason != RejectReason {
		t.Errorf("reason = %q, want %q", verdict.Reason, RejectReason)
	}
}

func TestAnalyze_AnyFlagAttributeRejects(t *testing.T) {
	for _, attr := range []string{"SEVERE_TOXICITY", "IDENTITY_ATTACK", "INSULT", "THREAT"} {
		srv := analyzerStub(t, map[string]float64{attr: 0.9}, nil)
		verdict, err := testClient(srv.URL).Analyze(context.Background(), "x")
		srv.Close()
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", attr, err)
		}
		if verdict.Accepted {
			t.Errorf("%s above the reject threshold did not reject", attr)
		}
	}
}

func TestAnalyze_ProfanityAloneDoesNotReject(t *testing.T) {
	srv := analyzerStub(t, map[string]float64{"PROFANITY": 0.95}, nil)
	defer srv.Close()

	verdict, err := testClient(srv.URL).Analyze(context.Background(), "damn")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verdict.Accepted {
		t.Error("profanity is scored but is not a reject attribute")
	}
}

func TestAnalyze_HateSpeechFlag(t *testing.T) {
	// Above the hate threshold but below the reject threshold: accepted,
	// flagged.
	srv := analyzerStub(t, map[string]float64{"IDENTITY_ATTACK": 0.75}, nil)
	defer srv.Close()

	verdict, err := testClient(srv.URL).Analyze(context.Background(), "borderline")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verdict.Accepted {
		t.Fatal("borderline text should be accepted")
	}
	if !verdict.Analysis.HateSpeech {
		t.Error("identity attack above the hate threshold should flag hate speech")
	}
}

func TestAnalyze_RatingNeverNegative(t *testing.T) {
	// Toxicity just under the reject threshold still maps to a small
	// positive rating; the clamp only matters for scores above 1, but the
	// formula must hold across the accepted range.
	srv := analyzerStub(t, map[string]float64{"TOXICITY": 0.8}, nil)
	defer srv.Close()

	verdict, err := testClient(srv.URL).Analyze(context.Background(), "harsh")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verdict.Accepted {
		t.Fatal("toxicity at the threshold boundary is not above it")
	}
	if verdict.Analysis.Rating < 0 {
		t.Errorf("rating = %v, must never be negative", verdict.Analysis.Rating)
	}
}

func TestAnalyze_ServerErrorIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).Analyze(context.Background(), "hello"); err == nil {
		t.Fatal("expected an error for a non-200 analyzer response")
	}
}

func TestAnalyze_APIKeyAppendedToURL(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"attributeScores": map[string]interface{}{}})
	}))
	defer srv.Close()

	cfg := DefaultClientConfig()
	cfg.URL = srv.URL
	cfg.APIKey = "secret-key"
	if _, err := NewClient(cfg).Analyze(context.Background(), "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKey != "secret-key" {
		t.Errorf("key query parameter = %q, want secret-key", gotKey)
	}
}
