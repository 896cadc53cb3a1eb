package scene

import "time"

// Canvas is the root drawing surface of a session.
type Canvas struct {
	ID     string `json:"id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Prompt string `json:"prompt,omitempty"`
}

// PromptEntry is one recorded free-text instruction.
type PromptEntry struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
