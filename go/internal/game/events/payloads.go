package events

import (
	"encoding/json"
)

// Push message types that are shared between the subscriber, session and
// round packages.

// Name identifies a push message kind on the backend event channel.
type Name string

const (
	NameComment Name = "comment"
	NameState   Name = "state"
	NameCorrect Name = "correct"
	NameRound   Name = "round"
	NameWordSet Name = "wordSet"
)

// Push is the envelope for a single server-initiated notification.
// Payload stays raw until the reconciler decodes it by Name.
type Push struct {
	Name    Name            `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

// CommentPayload is the payload for a comment push.
type CommentPayload struct {
	Username    string `json:"username"`
	CommentText string `json:"commentText"`
}

// StatePayload is the payload for a full state snapshot push.
type StatePayload struct {
	RoundOpen  bool           `json:"roundOpen"`
	WordLength int            `json:"wordLength"`
	Scores     map[string]int `json:"scores"`
}

// CorrectPayload is the payload for a winning-guess push.
type CorrectPayload struct {
	Username string         `json:"username"`
	Answer   string         `json:"answer"`
	Scores   map[string]int `json:"scores"`
}

// RoundPayload is the payload for a round open/closed push.
type RoundPayload struct {
	Open bool `json:"open"`
}

// WordSetPayload is the payload for a word-set push.
type WordSetPayload struct {
	WordLength int `json:"wordLength"`
}

// Closes reports whether this push tells us the round is closed on the
// backend. Both the incremental round push and the full state snapshot can
// carry that fact.
func (p Push) Closes() bool {
	switch p.Name {
	case NameRound:
		var rp RoundPayload
		if err := json.Unmarshal(p.Payload, &rp); err != nil {
			return false
		}
		return !rp.Open
	case NameState:
		var sp StatePayload
		if err := json.Unmarshal(p.Payload, &sp); err != nil {
			return false
		}
		return !sp.RoundOpen
	default:
		return false
	}
}
