package round

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/tebaklive/admin/go/internal/game/events"
	"github.com/tebaklive/admin/go/internal/game/questions"
	"github.com/tebaklive/admin/go/internal/game/session"
)

const (
	DefaultRoundSeconds = 15
	MinRoundSeconds     = 5
	MaxRoundSeconds     = 120

	// DefaultSettleDelay is the pause between a round expiring and the
	// auto-advance starting the next one.
	DefaultSettleDelay = 1200 * time.Millisecond
)

// ErrNoWordProvided is returned when a start is requested with neither a
// manual word nor an available sequencer word.
var ErrNoWordProvided = errors.New("no word provided")

// ErrClosed is returned for operator actions after the controller loop has
// shut down.
var ErrClosed = errors.New("round controller closed")

// State is the round controller's lifecycle state.
type State uint8

const (
	// StateIdle means no active round and no timer.
	StateIdle State = iota
	// StateCounting means the round is open and the countdown is running.
	StateCounting
	// StateExpired means the timer reached zero and an auto-advance is
	// pending in the settle window.
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateCounting:
		return "counting"
	case StateExpired:
		return "expired"
	default:
		return "idle"
	}
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Dispatcher sends administrative commands to the game backend.
type Dispatcher interface {
	SetWord(ctx context.Context, word string) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Config controls round timing.
type Config struct {
	// RoundSeconds is the countdown duration for new rounds, clamped to
	// [MinRoundSeconds, MaxRoundSeconds]. Zero means DefaultRoundSeconds.
	RoundSeconds int
	// AutoAdvance chains an expired round into the next question.
	AutoAdvance bool
	// SettleDelay overrides DefaultSettleDelay, mainly for tests.
	SettleDelay time.Duration
	// Clock defaults to the real clock.
	Clock clockwork.Clock
}

// Snapshot is a point-in-time view of the controller and session state.
type Snapshot struct {
	State         State            `json:"state"`
	Remaining     int              `json:"remaining"`
	Duration      int              `json:"duration"`
	AutoAdvance   bool             `json:"autoAdvance"`
	QuestionIndex int              `json:"questionIndex"`
	QuestionTotal int              `json:"questionTotal"`
	Word          string           `json:"word"`
	Hint          string           `json:"hint"`
	Notice        string           `json:"notice,omitempty"`
	Session       session.Snapshot `json:"session"`
}

type opKind uint8

const (
	opStart opKind = iota
	opStop
	opNext
	opSetDuration
	opSetAutoAdvance
)

type op struct {
	kind    opKind
	word    string
	seconds int
	enabled bool
	reply   chan error
}

// Controller owns the round lifecycle: the countdown timer, the expiry stop,
// and the auto-advance into the next question. All state transitions happen
// on its single Run loop; operator actions and backend pushes interleave
// there at event granularity, so no ordering between a tick and a push is
// assumed.
type Controller struct {
	dispatcher  Dispatcher
	store       *session.Store
	seq         *questions.Sequencer
	clock       clockwork.Clock
	pushes      <-chan events.Push
	settleDelay time.Duration
	instanceID  string

	ops       chan op
	done      chan struct{}
	closeOnce sync.Once

	mu        sync.RWMutex
	state     State
	remaining int
	duration  int
	autoNext  bool
	notice    string

	// loop-owned; at most one of each exists at any instant
	ticker clockwork.Ticker
	settle clockwork.Timer
}

func New(cfg Config, dispatcher Dispatcher, store *session.Store, seq *questions.Sequencer, pushes <-chan events.Push) *Controller {
	if cfg.RoundSeconds == 0 {
		cfg.RoundSeconds = DefaultRoundSeconds
	}
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	return &Controller{
		dispatcher:  dispatcher,
		store:       store,
		seq:         seq,
		clock:       cfg.Clock,
		pushes:      pushes,
		settleDelay: cfg.SettleDelay,
		instanceID:  uuid.New().String()[:8],
		ops:         make(chan op),
		done:        make(chan struct{}),
		state:       StateIdle,
		duration:    clampSeconds(cfg.RoundSeconds),
		autoNext:    cfg.AutoAdvance,
	}
}

// Run processes operator actions, backend pushes, timer ticks and the
// auto-advance settle window on a single goroutine until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	log.Info().
		Str("instance", c.instanceID).
		Int("round_seconds", c.duration).
		Bool("auto_advance", c.autoNext).
		Msg("round controller started")
	defer c.teardown()

	for {
		var tickCh, settleCh <-chan time.Time
		if c.ticker != nil {
			tickCh = c.ticker.Chan()
		}
		if c.settle != nil {
			settleCh = c.settle.Chan()
		}

		select {
		case <-ctx.Done():
			return nil
		case o := <-c.ops:
			o.reply <- c.handleOp(ctx, o)
		case p, ok := <-c.pushes:
			if !ok {
				c.pushes = nil
				continue
			}
			c.handlePush(p)
		case <-tickCh:
			c.handleTick(ctx)
		case <-settleCh:
			c.handleSettle(ctx)
		}
	}
}

func (c *Controller) teardown() {
	c.stopTicker()
	c.cancelSettle()
	c.closeOnce.Do(func() { close(c.done) })
	log.Info().Str("instance", c.instanceID).Msg("round controller stopped")
}

// Start begins a round. An empty word means "use the sequencer's current
// question".
func (c *Controller) Start(ctx context.Context, word string) error {
	return c.do(ctx, op{kind: opStart, word: word})
}

// Stop ends the current round and cancels any pending auto-advance.
// Idempotent: stopping with nothing active is harmless.
func (c *Controller) Stop(ctx context.Context) error {
	return c.do(ctx, op{kind: opStop})
}

// Next skips to the next question and starts a round for it.
func (c *Controller) Next(ctx context.Context) error {
	return c.do(ctx, op{kind: opNext})
}

// SetDuration changes the countdown for subsequent rounds, clamped to
// [MinRoundSeconds, MaxRoundSeconds]. The running countdown is unaffected.
func (c *Controller) SetDuration(ctx context.Context, seconds int) error {
	return c.do(ctx, op{kind: opSetDuration, seconds: seconds})
}

// SetAutoAdvance toggles chaining into the next question on expiry.
func (c *Controller) SetAutoAdvance(ctx context.Context, enabled bool) error {
	return c.do(ctx, op{kind: opSetAutoAdvance, enabled: enabled})
}

func (c *Controller) do(ctx context.Context, o op) error {
	o.reply = make(chan error, 1)
	select {
	case c.ops <- o:
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-o.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) handleOp(ctx context.Context, o op) error {
	switch o.kind {
	case opStart:
		word := o.word
		if word == "" {
			_, q, ok := c.seq.Current()
			if !ok {
				c.setNotice("no question available to start")
				return questions.ErrOutOfQuestions
			}
			word = q.Word
		}
		return c.startRound(ctx, word)

	case opNext:
		if c.seq.Len() == 0 {
			c.setNotice("no question available to start")
			return questions.ErrOutOfQuestions
		}
		idx, q := c.seq.Advance()
		log.Info().Str("instance", c.instanceID).Int("index", idx).Msg("skipping to next question")
		return c.startRound(ctx, q.Word)

	case opStop:
		c.stopRound(ctx)
		return nil

	case opSetDuration:
		sec := clampSeconds(o.seconds)
		c.mu.Lock()
		c.duration = sec
		c.mu.Unlock()
		log.Info().Str("instance", c.instanceID).Int("round_seconds", sec).Msg("round duration updated")
		return nil

	case opSetAutoAdvance:
		c.mu.Lock()
		c.autoNext = o.enabled
		c.mu.Unlock()
		log.Info().Str("instance", c.instanceID).Bool("auto_advance", o.enabled).Msg("auto-advance updated")
		return nil
	}

	return nil
}

// startRound drives the transition into COUNTING. Any active countdown and
// any pending auto-advance are superseded first, so two rounds can never
// tick at once and a stale settle task can never fire after a fresh start.
func (c *Controller) startRound(ctx context.Context, word string) error {
	if word == "" {
		return ErrNoWordProvided
	}

	c.cancelSettle()
	c.stopTicker()

	if err := c.dispatcher.SetWord(ctx, word); err != nil {
		c.dispatchFailed("set-word", err)
	}
	if err := c.dispatcher.Start(ctx); err != nil {
		c.dispatchFailed("start", err)
	}

	c.store.SetRound(true)
	c.store.SetWordLength(len([]rune(word)))

	c.mu.Lock()
	c.state = StateCounting
	c.remaining = c.duration
	seconds := c.remaining
	c.mu.Unlock()

	c.ticker = c.clock.NewTicker(time.Second)
	log.Info().
		Str("instance", c.instanceID).
		Str("word", word).
		Int("seconds", seconds).
		Msg("round started")
	return nil
}

// stopRound is the manual stop: COUNTING or EXPIRED, it always lands in
// IDLE with the countdown zeroed and nothing pending.
func (c *Controller) stopRound(ctx context.Context) {
	c.cancelSettle()
	c.stopTicker()

	if err := c.dispatcher.Stop(ctx); err != nil {
		c.dispatchFailed("stop", err)
	}
	c.store.SetRound(false)

	c.mu.Lock()
	c.state = StateIdle
	c.remaining = 0
	c.mu.Unlock()

	log.Info().Str("instance", c.instanceID).Msg("round stopped")
}

func (c *Controller) handleTick(ctx context.Context) {
	c.mu.Lock()
	if c.state != StateCounting {
		// stale tick from a source cancelled in the same loop iteration
		c.mu.Unlock()
		return
	}
	if c.remaining > 0 {
		c.remaining--
	}
	remaining := c.remaining
	c.mu.Unlock()

	if remaining > 0 {
		return
	}
	c.expire(ctx)
}

// expire runs exactly once per countdown: the tick source is cancelled
// before anything else can observe remaining at zero.
func (c *Controller) expire(ctx context.Context) {
	c.stopTicker()

	if !c.store.RoundOpen() {
		// the backend closed the round under us, nothing to stop and no
		// chaining on this path
		c.setState(StateIdle)
		return
	}

	if err := c.dispatcher.Stop(ctx); err != nil {
		c.dispatchFailed("stop", err)
	}
	c.store.SetRound(false)

	c.mu.Lock()
	auto := c.autoNext
	c.mu.Unlock()

	if !auto {
		c.setState(StateIdle)
		log.Info().Str("instance", c.instanceID).Msg("round expired")
		return
	}

	c.settle = c.clock.NewTimer(c.settleDelay)
	c.setState(StateExpired)
	log.Info().
		Str("instance", c.instanceID).
		Dur("settle", c.settleDelay).
		Msg("round expired, auto-advance pending")
}

func (c *Controller) handleSettle(ctx context.Context) {
	c.settle = nil

	if c.seq.Len() == 0 {
		c.setNotice("no question available to start")
		c.setState(StateIdle)
		return
	}

	idx, q := c.seq.Advance()
	log.Info().Str("instance", c.instanceID).Int("index", idx).Msg("auto-advancing to next question")
	if err := c.startRound(ctx, q.Word); err != nil {
		log.Warn().Err(err).Str("instance", c.instanceID).Msg("auto-advance start failed")
		c.setState(StateIdle)
	}
}

// handlePush folds one push into the session state and reacts to round-
// affecting changes. Only a closure that contradicts our local belief is
// treated as externally forced; the echo of our own stop arrives after we
// already marked the round closed and must not disturb a pending
// auto-advance.
func (c *Controller) handlePush(p events.Push) {
	believedOpen := c.store.RoundOpen()
	c.store.Apply(p)

	if !believedOpen || !p.Closes() {
		return
	}
	if c.getState() != StateCounting {
		return
	}

	// externally forced closure: cancel the countdown, freeze the remaining
	// seconds until the next start, and do not chain into the next question
	c.stopTicker()
	c.mu.Lock()
	c.state = StateIdle
	remaining := c.remaining
	c.mu.Unlock()

	log.Info().
		Str("instance", c.instanceID).
		Int("remaining", remaining).
		Msg("round closed by backend, countdown cancelled")
}

// Snapshot returns the operator-facing view of the controller, the current
// question and the reconciled session state.
func (c *Controller) Snapshot() Snapshot {
	idx, q, _ := c.seq.Current()

	c.mu.RLock()
	snap := Snapshot{
		State:       c.state,
		Remaining:   c.remaining,
		Duration:    c.duration,
		AutoAdvance: c.autoNext,
		Notice:      c.notice,
	}
	c.mu.RUnlock()

	snap.QuestionIndex = idx
	snap.QuestionTotal = c.seq.Len()
	snap.Word = q.Word
	snap.Hint = q.Hint
	snap.Session = c.store.Snapshot()
	return snap
}

// dispatchFailed surfaces a backend failure to the operator without
// touching the countdown: the local timer drives the UX, the backend owns
// the scores.
func (c *Controller) dispatchFailed(cmd string, err error) {
	log.Warn().
		Err(err).
		Str("instance", c.instanceID).
		Str("command", cmd).
		Msg("backend dispatch failed")
	c.setNotice(fmt.Sprintf("%s failed: %v", cmd, err))
}

func (c *Controller) setNotice(msg string) {
	c.mu.Lock()
	c.notice = msg
	c.mu.Unlock()
}

func (c *Controller) getState() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func clampSeconds(sec int) int {
	if sec < MinRoundSeconds {
		return MinRoundSeconds
	}
	if sec > MaxRoundSeconds {
		return MaxRoundSeconds
	}
	return sec
}
