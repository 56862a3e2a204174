package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drainEvents reads until the governor closes its event channel, which
// happens when either countdown expires or Stop is called.
func drainEvents(t *testing.T, g *Governor) []ClockEvent {
	t.Helper()
	var events []ClockEvent
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-g.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-deadline:
			t.Fatalf("governor never finished; saw %d events", len(events))
		}
	}
}

func TestGovernorTurnCountdown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TurnDuration = 50 * time.Millisecond
	cfg.MatchDuration = 10 * time.Second
	cfg.WarningAt = 20 * time.Millisecond
	cfg.DangerAt = 10 * time.Millisecond

	g := NewGovernor(cfg)
	g.tick = 5 * time.Millisecond
	g.Start()

	events := drainEvents(t, g)
	require.Len(t, events, 3)

	assert.Equal(t, UrgencyChanged, events[0].Kind)
	assert.Equal(t, UrgencyWarning, events[0].Urgency)
	assert.Equal(t, cfg.WarningAt, events[0].TurnRemaining)

	assert.Equal(t, UrgencyChanged, events[1].Kind)
	assert.Equal(t, UrgencyDanger, events[1].Urgency)
	assert.Equal(t, cfg.DangerAt, events[1].TurnRemaining)

	assert.Equal(t, TurnExpired, events[2].Kind)
}

func TestGovernorMatchExpiry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TurnDuration = 10 * time.Second
	cfg.MatchDuration = 30 * time.Millisecond

	g := NewGovernor(cfg)
	g.tick = 5 * time.Millisecond
	g.Start()

	events := drainEvents(t, g)
	require.Len(t, events, 1, "the per-turn clock never reaches a threshold")
	assert.Equal(t, MatchExpired, events[0].Kind)
}

func TestGovernorResetRestoresTurnBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TurnDuration = 200 * time.Millisecond
	cfg.MatchDuration = 10 * time.Second
	cfg.WarningAt = 100 * time.Millisecond
	cfg.DangerAt = 20 * time.Millisecond

	g := NewGovernor(cfg)
	g.tick = 10 * time.Millisecond
	g.Start()

	first, ok := <-g.Events()
	require.True(t, ok)
	require.Equal(t, UrgencyChanged, first.Kind)
	require.Equal(t, UrgencyWarning, first.Urgency)

	g.ResetTurn()

	events := drainEvents(t, g)
	require.Len(t, events, 4)
	assert.Equal(t, UrgencyNormal, events[0].Urgency, "reset clears the elevated urgency")
	assert.Equal(t, cfg.TurnDuration, events[0].TurnRemaining)
	assert.Equal(t, UrgencyWarning, events[1].Urgency, "thresholds fire again after a reset")
	assert.Equal(t, UrgencyDanger, events[2].Urgency)
	assert.Equal(t, TurnExpired, events[3].Kind)
}

func TestGovernorStop(t *testing.T) {
	g := NewGovernor(DefaultConfig())
	g.tick = time.Hour
	g.Start()

	g.Stop()
	g.Stop()

	events := drainEvents(t, g)
	assert.Empty(t, events)
}
