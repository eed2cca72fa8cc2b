package round

import (
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// stopTicker cancels the live tick source, if any. Safe to call with none
// active; starting a new round and stopping one both go through here, which
// is what keeps the "at most one ticker" guarantee.
func (c *Controller) stopTicker() {
	if c.ticker == nil {
		return
	}
	c.ticker.Stop()
	c.ticker = nil
	log.Debug().Str("instance", c.instanceID).Msg("tick source cancelled")
}

// cancelSettle cancels a pending auto-advance, if any. Idempotent.
func (c *Controller) cancelSettle() {
	if c.settle == nil {
		return
	}
	stopAndDrainTimer(c.settle)
	c.settle = nil
	log.Debug().Str("instance", c.instanceID).Msg("pending auto-advance cancelled")
}

// stopAndDrainTimer stops a timer and drains its channel so a fire that
// raced the Stop cannot be mistaken for a live one later. This follows the
// pattern recommended in the time.Timer.Stop documentation.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
