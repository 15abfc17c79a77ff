package pipeline

import (
	"github.com/goccy/go-json"

	"github.com/SpecGeniusAI/FlareWeather-sub002/internal/push"
)

const fallbackTitle = "Your forecast is ready"

// MessageFromContent derives the notification text from a record's
// content payload. The payload is opaque to the rest of the core; only
// this derivation knows its headline/body shape, and a payload that does
// not decode still produces a deliverable message.
func MessageFromContent(content []byte) push.Message {
	var doc struct {
		Headline string `json:"headline"`
		Body     string `json:"body"`
	}
	if err := json.Unmarshal(content, &doc); err != nil || doc.Headline == "" {
		return push.Message{Title: fallbackTitle}
	}
	return push.Message{Title: doc.Headline, Body: doc.Body}
}
