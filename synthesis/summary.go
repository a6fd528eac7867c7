package synthesis

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ParseFailure is the error string carried by a Result whose response could
// not be decoded.
const ParseFailure = "LLM parsing failed"

// FlexText accepts whatever JSON shape the model chose for a field. Arrays
// are joined with ", ", objects are kept as compact JSON and null is empty.
type FlexText string

func (f *FlexText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexText(s)
	case '[':
		var items []FlexText
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			if s := strings.TrimSpace(string(item)); s != "" {
				parts = append(parts, s)
			}
		}
		*f = FlexText(strings.Join(parts, ", "))
	case '{':
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return err
		}
		*f = FlexText(buf.String())
	default:
		*f = FlexText(data)
	}
	return nil
}

// ClinicalSummary is the structured record requested from the model.
type ClinicalSummary struct {
	Name              FlexText `json:"name"`
	BirthDate         FlexText `json:"birth_date"`
	Weight            FlexText `json:"weight"`
	Height            FlexText `json:"height"`
	Allergies         FlexText `json:"allergies"`
	Medications       FlexText `json:"medications"`
	InsuranceProvider FlexText `json:"insurance_provider"`
	InsuranceExpiry   FlexText `json:"insurance_expiry"`
	NotableConditions FlexText `json:"notable_conditions"`
	Immunizations     FlexText `json:"immunizations"`
	Disease           FlexText `json:"disease"`
	Insights          FlexText `json:"insights"`
	Treatment         FlexText `json:"treatment"`
	Precautions       FlexText `json:"precautions"`
}

// Result is either a parsed summary or the diagnostics of a failed parse.
type Result struct {
	Summary     *ClinicalSummary `json:"summary,omitempty"`
	Error       string           `json:"error,omitempty"`
	RawResponse string           `json:"raw_response,omitempty"`
	Exception   string           `json:"exception,omitempty"`
}

func (r *Result) Failed() bool {
	return r.Summary == nil
}

// ParseSummary sanitizes and decodes raw. It never returns an error: a bad
// response comes back as a failed Result carrying the raw text.
func ParseSummary(raw string) *Result {
	var summary ClinicalSummary
	if err := json.Unmarshal([]byte(Sanitize(raw)), &summary); err != nil {
		return &Result{
			Error:       ParseFailure,
			RawResponse: raw,
			Exception:   err.Error(),
		}
	}
	return &Result{Summary: &summary}
}
