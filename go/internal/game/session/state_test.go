package session

import (
	"encoding/json"
	"fmt"
	"reflect"
	"testing"

	"github.com/tebaklive/admin/go/internal/game/events"
)

func push(t *testing.T, name events.Name, payload any) events.Push {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	return events.Push{Name: name, Payload: raw}
}

func TestApplyStateReplacesWholesale(t *testing.T) {
	s := NewStore()
	s.Apply(push(t, events.NameState, events.StatePayload{
		RoundOpen:  true,
		WordLength: 4,
		Scores:     map[string]int{"budi": 3, "sari": 1},
	}))

	// A later snapshot must fully replace the scoreboard, not merge into it.
	s.Apply(push(t, events.NameState, events.StatePayload{
		RoundOpen:  false,
		WordLength: 5,
		Scores:     map[string]int{"sari": 2},
	}))

	snap := s.Snapshot()
	if snap.RoundOpen {
		t.Error("round should be closed")
	}
	if snap.WordLength != 5 {
		t.Errorf("wordLength = %d, want 5", snap.WordLength)
	}
	if !reflect.DeepEqual(snap.Scores, map[string]int{"sari": 2}) {
		t.Errorf("scores = %v, want map[sari:2]", snap.Scores)
	}
}

func TestApplyCorrect(t *testing.T) {
	s := NewStore()
	s.Apply(push(t, events.NameComment, events.CommentPayload{Username: "budi", CommentText: "pisang"}))
	s.Apply(push(t, events.NameCorrect, events.CorrectPayload{
		Username: "sari",
		Answer:   "APEL",
		Scores:   map[string]int{"sari": 1},
	}))

	snap := s.Snapshot()
	if !reflect.DeepEqual(snap.Scores, map[string]int{"sari": 1}) {
		t.Errorf("scores = %v, want map[sari:1]", snap.Scores)
	}
	if len(snap.Comments) != 2 {
		t.Fatalf("feed length = %d, want 2", len(snap.Comments))
	}
	first := snap.Comments[0]
	if !first.Correct || first.Username != "sari" || first.CommentText != "APEL" {
		t.Errorf("synthetic entry = %+v", first)
	}
	if snap.Comments[1].Correct {
		t.Error("ordinary comment must not be marked correct")
	}
}

func TestApplyCorrectNilScores(t *testing.T) {
	s := NewStore()
	s.Apply(push(t, events.NameState, events.StatePayload{Scores: map[string]int{"budi": 9}}))
	s.Apply(push(t, events.NameCorrect, events.CorrectPayload{Username: "x", Answer: "y"}))

	snap := s.Snapshot()
	if len(snap.Scores) != 0 {
		t.Errorf("scores = %v, want empty after nil push", snap.Scores)
	}
}

func TestApplyPartialUpdates(t *testing.T) {
	s := NewStore()
	s.Apply(push(t, events.NameState, events.StatePayload{RoundOpen: true, WordLength: 4}))

	s.Apply(push(t, events.NameRound, events.RoundPayload{Open: false}))
	snap := s.Snapshot()
	if snap.RoundOpen {
		t.Error("round push must flip the flag")
	}
	if snap.WordLength != 4 {
		t.Errorf("round push must leave wordLength alone, got %d", snap.WordLength)
	}

	s.Apply(push(t, events.NameWordSet, events.WordSetPayload{WordLength: 7}))
	snap = s.Snapshot()
	if snap.WordLength != 7 {
		t.Errorf("wordLength = %d, want 7", snap.WordLength)
	}
	if snap.RoundOpen {
		t.Error("wordSet push must leave the round flag alone")
	}
}

func TestFeedBoundedAtLimit(t *testing.T) {
	s := NewStore()
	total := FeedLimit + 50
	for i := 0; i < total; i++ {
		s.Apply(push(t, events.NameComment, events.CommentPayload{
			Username:    "u",
			CommentText: fmt.Sprintf("guess-%d", i),
		}))
	}

	snap := s.Snapshot()
	if len(snap.Comments) != FeedLimit {
		t.Fatalf("feed length = %d, want %d", len(snap.Comments), FeedLimit)
	}
	if snap.Comments[0].CommentText != fmt.Sprintf("guess-%d", total-1) {
		t.Errorf("newest entry = %q, want guess-%d", snap.Comments[0].CommentText, total-1)
	}
	if snap.Comments[FeedLimit-1].CommentText != fmt.Sprintf("guess-%d", total-FeedLimit) {
		t.Errorf("oldest kept entry = %q", snap.Comments[FeedLimit-1].CommentText)
	}
}

func TestMalformedPushDropped(t *testing.T) {
	s := NewStore()
	s.Apply(push(t, events.NameState, events.StatePayload{RoundOpen: true, WordLength: 4}))

	s.Apply(events.Push{Name: events.NameState, Payload: []byte(`"not an object"`)})
	s.Apply(events.Push{Name: events.NameComment, Payload: []byte(`{invalid`)})
	s.Apply(events.Push{Name: "mystery", Payload: []byte(`{}`)})

	snap := s.Snapshot()
	if !snap.RoundOpen || snap.WordLength != 4 {
		t.Errorf("malformed pushes must not change state, got %+v", snap)
	}
	if len(snap.Comments) != 0 {
		t.Errorf("feed = %v, want empty", snap.Comments)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewStore()
	s.Apply(push(t, events.NameState, events.StatePayload{Scores: map[string]int{"budi": 1}}))

	snap := s.Snapshot()
	snap.Scores["budi"] = 99

	if got := s.Snapshot().Scores["budi"]; got != 1 {
		t.Errorf("store mutated through snapshot, score = %d", got)
	}
}
