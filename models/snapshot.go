package models

import "strings"

// MergeSnapshot applies patch on top of old. A blank string or a zero age in
// patch means "not supplied" and keeps the old value. Supplied strings are
// stored trimmed.
//
// Because zero means "not supplied", a stored age can never be set back to 0
// through a merge.
func MergeSnapshot(old, patch Snapshot) Snapshot {
	merged := old
	pick := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	pick(&merged.Name, patch.Name)
	pick(&merged.Contact, patch.Contact)
	pick(&merged.DateOfBirth, patch.DateOfBirth)
	pick(&merged.Symptoms, patch.Symptoms)
	pick(&merged.Allergies, patch.Allergies)
	pick(&merged.PreviousDiseases, patch.PreviousDiseases)
	pick(&merged.Weight, patch.Weight)
	pick(&merged.Height, patch.Height)
	pick(&merged.Medications, patch.Medications)
	if patch.Age > 0 {
		merged.Age = patch.Age
	}
	return merged
}

// WithIntakeDefaults fills the demographic placeholders used when an intake
// form leaves them out.
func (s Snapshot) WithIntakeDefaults() Snapshot {
	return MergeSnapshot(Snapshot{Name: "Unknown", Contact: "N/A", DateOfBirth: "Unknown"}, s)
}

// SplitSymptoms splits a comma separated symptom field into trimmed tokens,
// dropping blanks.
func SplitSymptoms(field string) []string {
	parts := strings.Split(field, ",")
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// JoinSymptoms is the canonical symptom string stored on disease episodes.
func JoinSymptoms(tokens []string) string {
	cleaned := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	return strings.Join(cleaned, ", ")
}
