package questions

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrOutOfQuestions is returned when a word is requested but the question
// bank has nothing to offer. With a non-empty bank the sequencer wraps
// around, so in practice this only fires at the empty-bank boundary.
var ErrOutOfQuestions = errors.New("no questions available")

// Question is a single entry of the static question bank.
type Question struct {
	Word string `yaml:"word" json:"word"`
	Hint string `yaml:"hint" json:"hint"`
}

// Load reads a YAML question bank from path. The bank is read-only at
// runtime; an empty bank is rejected here so the sequencer never has to
// deal with one.
func Load(path string) ([]Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}

	var bank []Question
	if err := yaml.Unmarshal(data, &bank); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}

	for i, q := range bank {
		if q.Word == "" {
			return nil, fmt.Errorf("question %d has an empty word", i)
		}
	}

	if len(bank) == 0 {
		return nil, fmt.Errorf("question bank %s: %w", path, ErrOutOfQuestions)
	}

	return bank, nil
}

// Sequencer walks an ordered, finite question list. Advancing past the last
// entry wraps back to index 0.
type Sequencer struct {
	mu        sync.Mutex
	questions []Question
	index     int
}

func NewSequencer(bank []Question) (*Sequencer, error) {
	if len(bank) == 0 {
		return nil, ErrOutOfQuestions
	}
	return &Sequencer{questions: bank}, nil
}

// Current returns the question at the current index. ok is false only for
// an empty sequence, which NewSequencer guards against.
func (s *Sequencer) Current() (int, Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.questions) == 0 {
		return 0, Question{}, false
	}
	return s.index, s.questions[s.index], true
}

// Advance moves to the next question, wrapping to index 0 after the last
// one, and returns the new position.
func (s *Sequencer) Advance() (int, Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = (s.index + 1) % len(s.questions)
	return s.index, s.questions[s.index]
}

func (s *Sequencer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.questions)
}
