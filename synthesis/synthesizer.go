// Package synthesis asks a chat model for a structured clinical summary and
// parses whatever comes back.
package synthesis

import (
	"Medicare/apperrors"
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const assistantSystemPrompt = "You are a highly knowledgeable medical assistant. " +
	"Use the provided patient's symptoms and predicted disease to offer precise " +
	"treatment advice, precautions, and answer further medical queries."

const summaryPromptTemplate = `Patient Name: %s
Symptoms: %s
Extracted Medical Document (OCR):
%s

Predicted Disease: %s

Your task:
Respond strictly in JSON format with keys:
- name, birth_date, weight, height, allergies, medications, insurance_provider, insurance_expiry
- notable_conditions, immunizations
- disease, insights, treatment, precautions
`

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer sends a role tagged conversation and returns the assistant reply.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

type Synthesizer struct {
	completer Completer
}

func NewSynthesizer(completer Completer) *Synthesizer {
	return &Synthesizer{completer: completer}
}

func BuildSummaryPrompt(name, symptoms, extractedText, disease string) string {
	return fmt.Sprintf(summaryPromptTemplate, name, symptoms, extractedText, disease)
}

// Synthesize requests a clinical summary. Only a failed completion is an
// error; an unparseable answer is reported inside the Result.
func (s *Synthesizer) Synthesize(ctx context.Context, name, symptoms, extractedText, disease string) (*Result, error) {
	prompt := BuildSummaryPrompt(name, symptoms, extractedText, disease)
	raw, err := s.completer.Complete(ctx, []Message{{Role: RoleUser, Content: prompt}})
	if err != nil {
		return nil, apperrors.Upstream(err, "summary completion")
	}

	result := ParseSummary(raw)
	if result.Failed() {
		log.WithField("exception", result.Exception).Warn("LLM summary could not be parsed")
	}
	return result, nil
}

// Chat forwards a clinician conversation with the assistant system prompt
// prepended.
func (s *Synthesizer) Chat(ctx context.Context, messages []Message) (string, error) {
	conversation := make([]Message, 0, len(messages)+1)
	conversation = append(conversation, Message{Role: RoleSystem, Content: assistantSystemPrompt})
	conversation = append(conversation, messages...)

	reply, err := s.completer.Complete(ctx, conversation)
	if err != nil {
		return "", apperrors.Upstream(err, "chat completion")
	}
	return reply, nil
}
