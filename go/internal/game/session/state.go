package session

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/tebaklive/admin/go/internal/game/events"
)

// FeedLimit bounds the comment feed to the most recent entries.
const FeedLimit = 200

// Comment is one entry of the live comment feed. Correct marks entries that
// the backend recognized as winning guesses.
type Comment struct {
	Username    string `json:"username"`
	CommentText string `json:"commentText"`
	Correct     bool   `json:"correct"`
}

// Snapshot is a copy of the reconciled session state, safe to hand out.
type Snapshot struct {
	RoundOpen  bool           `json:"roundOpen"`
	WordLength int            `json:"wordLength"`
	Scores     map[string]int `json:"scores"`
	Comments   []Comment      `json:"comments"`
}

// Store holds the locally reconciled view of round status, word length,
// scores and recent comments. The backend is authoritative for all of it:
// compound fields are replaced wholesale on each push, never merged.
type Store struct {
	mu         sync.RWMutex
	roundOpen  bool
	wordLength int
	scores     map[string]int
	comments   []Comment
}

func NewStore() *Store {
	return &Store{scores: map[string]int{}}
}

// Apply folds one push event into the store. Pushes are applied in receipt
// order, last write wins. Malformed payloads are dropped rather than
// crashing the session.
func (s *Store) Apply(p events.Push) {
	switch p.Name {
	case events.NameComment:
		var cp events.CommentPayload
		if !decode(p, &cp) {
			return
		}
		s.prepend(Comment{Username: cp.Username, CommentText: cp.CommentText})

	case events.NameState:
		var sp events.StatePayload
		if !decode(p, &sp) {
			return
		}
		s.mu.Lock()
		s.roundOpen = sp.RoundOpen
		s.wordLength = sp.WordLength
		s.scores = nonNil(sp.Scores)
		s.mu.Unlock()

	case events.NameCorrect:
		var cp events.CorrectPayload
		if !decode(p, &cp) {
			return
		}
		s.mu.Lock()
		s.scores = nonNil(cp.Scores)
		s.mu.Unlock()
		s.prepend(Comment{Username: cp.Username, CommentText: cp.Answer, Correct: true})

	case events.NameRound:
		var rp events.RoundPayload
		if !decode(p, &rp) {
			return
		}
		s.mu.Lock()
		s.roundOpen = rp.Open
		s.mu.Unlock()

	case events.NameWordSet:
		var wp events.WordSetPayload
		if !decode(p, &wp) {
			return
		}
		s.mu.Lock()
		s.wordLength = wp.WordLength
		s.mu.Unlock()

	default:
		log.Debug().Str("name", string(p.Name)).Msg("ignoring unknown push")
	}
}

// RoundOpen reports the backend's last known round status.
func (s *Store) RoundOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roundOpen
}

// SetRound overrides the local round flag, used when a local action (timer
// expiry, manual stop) closes the round before the backend confirms it.
func (s *Store) SetRound(open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roundOpen = open
}

// SetWordLength records the length of a word we just set ourselves.
func (s *Store) SetWordLength(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wordLength = n
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		RoundOpen:  s.roundOpen,
		WordLength: s.wordLength,
		Scores:     lo.Assign(s.scores),
		Comments:   append([]Comment(nil), s.comments...),
	}
}

func (s *Store) prepend(c Comment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments = append([]Comment{c}, s.comments...)
	if len(s.comments) > FeedLimit {
		s.comments = s.comments[:FeedLimit]
	}
}

func decode(p events.Push, v any) bool {
	if err := json.Unmarshal(p.Payload, v); err != nil {
		log.Debug().Err(err).Str("name", string(p.Name)).Msg("dropping malformed push")
		return false
	}
	return true
}

func nonNil(scores map[string]int) map[string]int {
	if scores == nil {
		return map[string]int{}
	}
	return scores
}
