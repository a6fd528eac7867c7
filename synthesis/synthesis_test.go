package synthesis

import (
	"Medicare/apperrors"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

const plainSummary = `{
  "name": "Asha Rao",
  "birth_date": "1983-02-11",
  "weight": 62,
  "height": "165 cm",
  "allergies": ["Dust", "Pollen"],
  "medications": "Salbutamol",
  "insurance_provider": null,
  "insurance_expiry": "",
  "notable_conditions": {"asthma": true},
  "immunizations": ["BCG", "MMR"],
  "disease": "flu",
  "insights": "See https://example.org/flu for details",
  "treatment": "Rest and fluids",
  "precautions": "Avoid cold exposure"
}`

const fencedSummary = "Here is the structured record:\n```json\n{\n" +
	`  "name": "Asha Rao", // from the form
  "birth_date": "1983-02-11",
  "weight": 62, // kg
  "height": "165 cm",
  "allergies": ["Dust", "Pollen"],
  "medications": "Salbutamol",
  "insurance_provider": null, // NOT PROVIDED
  "insurance_expiry": "",
  "notable_conditions": {"asthma": true},
  "immunizations": ["BCG", "MMR"], // IMMUNE
  "disease": "flu",
  "insights": "See https://example.org/flu for details",
  "treatment": "Rest and fluids",
  "precautions": "Avoid cold exposure"
}` + "\n```\nLet me know if you need anything else."

func TestParseSummary_FencedWithCommentsEqualsPlain(t *testing.T) {
	plain := ParseSummary(plainSummary)
	fenced := ParseSummary(fencedSummary)
	if plain.Failed() {
		t.Fatalf("plain parse failed: %s", plain.Exception)
	}
	if fenced.Failed() {
		t.Fatalf("fenced parse failed: %s (%q)", fenced.Exception, Sanitize(fencedSummary))
	}
	if !reflect.DeepEqual(plain.Summary, fenced.Summary) {
		t.Errorf("fenced = %+v\nplain = %+v", fenced.Summary, plain.Summary)
	}
}

func TestParseSummary_FlexibleFields(t *testing.T) {
	res := ParseSummary(plainSummary)
	if res.Failed() {
		t.Fatal(res.Exception)
	}
	s := res.Summary
	if s.Weight != "62" {
		t.Errorf("Weight = %q", s.Weight)
	}
	if s.Allergies != "Dust, Pollen" {
		t.Errorf("Allergies = %q", s.Allergies)
	}
	if s.InsuranceProvider != "" {
		t.Errorf("InsuranceProvider = %q", s.InsuranceProvider)
	}
	if s.NotableConditions != `{"asthma":true}` {
		t.Errorf("NotableConditions = %q", s.NotableConditions)
	}
	if s.Insights != "See https://example.org/flu for details" {
		t.Errorf("comment stripping touched a string: %q", s.Insights)
	}
}

func TestParseSummary_FailureCarriesRawResponse(t *testing.T) {
	raw := "I'm sorry, I cannot produce JSON for this document."
	res := ParseSummary(raw)
	if !res.Failed() {
		t.Fatal("expected failure")
	}
	if res.Error != ParseFailure || res.RawResponse != raw || res.Exception == "" {
		t.Errorf("unexpected failure result %+v", res)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"raw", `{"a": 1}`, `{"a": 1}`},
		{"inline fence", "```json {\"a\": 1} ```", `{"a": 1}`},
		{"untagged fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"comment", "{\"a\": 1 // one\n}", "{\"a\": 1 \n}"},
		{"slashes in string", `{"u": "http://x//y"}`, `{"u": "http://x//y"}`},
		{"escaped quote", `{"q": "say \"//hi\""}`, `{"q": "say \"//hi\""}`},
		{"prose around object", "Sure! {\"a\": 1} Thanks.", `{"a": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

type fakeCompleter struct {
	reply    string
	err      error
	messages []Message
}

func (f *fakeCompleter) Complete(_ context.Context, messages []Message) (string, error) {
	f.messages = messages
	return f.reply, f.err
}

func TestSynthesize_PromptCarriesInputs(t *testing.T) {
	fc := &fakeCompleter{reply: plainSummary}
	res, err := NewSynthesizer(fc).Synthesize(context.Background(), "Asha", "fever, cough", "BP 120/80", "flu")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if res.Failed() || res.Summary.Disease != "flu" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(fc.messages) != 1 || fc.messages[0].Role != RoleUser {
		t.Fatalf("unexpected messages %+v", fc.messages)
	}
	prompt := fc.messages[0].Content
	for _, want := range []string{"Patient Name: Asha", "Symptoms: fever, cough", "BP 120/80", "Predicted Disease: flu", "insurance_provider"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestSynthesize_ParseFailureIsNotAnError(t *testing.T) {
	fc := &fakeCompleter{reply: "no json here"}
	res, err := NewSynthesizer(fc).Synthesize(context.Background(), "", "headache, fever", "", "Unknown")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !res.Failed() || res.RawResponse != "no json here" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestSynthesize_CompletionFailureIsUpstream(t *testing.T) {
	fc := &fakeCompleter{err: fmt.Errorf("503 from provider")}
	_, err := NewSynthesizer(fc).Synthesize(context.Background(), "", "", "", "")
	if !errors.Is(err, apperrors.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestChat_PrependsSystemPrompt(t *testing.T) {
	fc := &fakeCompleter{reply: "Drink water."}
	reply, err := NewSynthesizer(fc).Chat(context.Background(), []Message{{Role: RoleUser, Content: "What now?"}})
	if err != nil {
		t.Fatal(err)
	}
	if reply != "Drink water." {
		t.Errorf("reply = %q", reply)
	}
	if len(fc.messages) != 2 || fc.messages[0].Role != RoleSystem || fc.messages[1].Content != "What now?" {
		t.Errorf("unexpected conversation %+v", fc.messages)
	}
}

func TestOpenAICompleter_AgainstCompatibleServer(t *testing.T) {
	var got struct {
		Model    string    `json:"model"`
		Messages []Message `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openai/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"llama3-8b-8192",
			"choices":[{"index":0,"message":{"role":"assistant","content":"  {\"disease\": \"flu\"}  "},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	c := NewOpenAICompleter("test-key", srv.URL+"/openai/v1/", "llama3-8b-8192")
	reply, err := c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reply != `{"disease": "flu"}` {
		t.Errorf("reply = %q", reply)
	}
	if got.Model != "llama3-8b-8192" || len(got.Messages) != 1 || got.Messages[0].Content != "hi" {
		t.Errorf("unexpected request %+v", got)
	}
}

func TestOpenAICompleter_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
	}))
	defer srv.Close()

	c := NewOpenAICompleter("k", srv.URL, "m")
	if _, err := c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}); err == nil {
		t.Fatal("expected an error")
	}
}
