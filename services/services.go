package services

import (
	"Medicare/notify"
	"Medicare/synthesis"
	"context"

	log "github.com/sirupsen/logrus"
)

// NotApplicable is recorded as the document summary of a visit that came
// without a document.
const NotApplicable = "N/A"

// TextExtractor turns an uploaded document into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, document []byte) (string, error)
}

// SummarySynthesizer is the chat model side of the pipeline.
type SummarySynthesizer interface {
	Synthesize(ctx context.Context, name, symptoms, extractedText, disease string) (*synthesis.Result, error)
	Chat(ctx context.Context, messages []synthesis.Message) (string, error)
}

// DocumentStore keeps the original uploads. It is optional.
type DocumentStore interface {
	Put(ctx context.Context, prefix string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
}

// PlanNotifier tells a hospital about a new treatment plan. It is optional.
type PlanNotifier interface {
	NotifyTreatmentPlan(ctx context.Context, to string, notice notify.PlanNotice) error
}

// ResetMailer delivers password reset codes. It is optional.
type ResetMailer interface {
	SendResetCode(ctx context.Context, to, code string) error
}

// Document is an uploaded file.
type Document struct {
	Filename string
	Data     []byte
}

func discardDocument(ctx context.Context, store DocumentStore, key string) {
	if store == nil || key == "" {
		return
	}
	if err := store.Delete(ctx, key); err != nil {
		log.WithError(err).WithField("key", key).Warn("Failed to remove stored document")
	}
}
