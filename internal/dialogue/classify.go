package dialogue

import (
	"encoding/json"
	"strings"
	"time"
)

// Outcome is the classification of a gateway reply.
type Outcome int

const (
	// OutcomeContinue means the reply is an ordinary conversational turn.
	OutcomeContinue Outcome = iota
	// OutcomeConfirmed means the reply carried a booking confirmation payload.
	OutcomeConfirmed
)

// ConfirmationPayload is the structured object the model emits once service,
// slot, and client name are all known. It exists only transiently; a
// confirmed payload is immediately turned into an appointment.
type ConfirmationPayload struct {
	Confirmation bool   `json:"confirmation"`
	ServiceName  string `json:"serviceName"`
	Date         string `json:"date"`
	ClientName   string `json:"clientName"`
}

// valid reports whether the payload carries everything needed to build an
// appointment. The model is duck-typed; anything short of a complete payload
// is treated as conversation, never as an error.
func (p *ConfirmationPayload) valid() bool {
	if !p.Confirmation {
		return false
	}
	if strings.TrimSpace(p.ServiceName) == "" || strings.TrimSpace(p.ClientName) == "" {
		return false
	}
	if _, err := time.Parse(time.RFC3339, p.Date); err != nil {
		return false
	}
	return true
}

// Classify decides whether a raw gateway reply terminates the dialogue.
//
// The model is instructed to answer with either prose or a bare JSON object,
// but in practice it sometimes wraps the object in markdown code fences.
// Fences are stripped before the shape check. Text that does not look like a
// standalone object is never parsed. An object that parses but fails payload
// validation is classified as Continue and displayed verbatim; this is the
// only mechanism that ends a session, so the check errs on the side of
// keeping the conversation going.
func Classify(raw string) (Outcome, *ConfirmationPayload) {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	if !strings.HasPrefix(cleaned, "{") || !strings.HasSuffix(cleaned, "}") {
		return OutcomeContinue, nil
	}

	var payload ConfirmationPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return OutcomeContinue, nil
	}
	if !payload.valid() {
		return OutcomeContinue, nil
	}
	return OutcomeConfirmed, &payload
}
