package client

import (
	"sync"
	"time"

	"github.com/caro-vn/caro-online/pkg/logging"
	"go.uber.org/zap"
)

type Urgency uint8

const (
	UrgencyNormal Urgency = iota
	UrgencyWarning
	UrgencyDanger
)

func (u Urgency) String() string {
	switch u {
	case UrgencyNormal:
		return "NORMAL"
	case UrgencyWarning:
		return "WARNING"
	case UrgencyDanger:
		return "DANGER"
	default:
		return "UNKNOWN"
	}
}

type ClockEventKind uint8

const (
	TurnExpired ClockEventKind = iota
	MatchExpired
	UrgencyChanged
)

type ClockEvent struct {
	Kind           ClockEventKind
	Urgency        Urgency
	TurnRemaining  time.Duration
	MatchRemaining time.Duration
}

// Governor owns the two independent countdowns of a match: the total
// match budget and the per-turn budget. The per-turn clock resets to its
// full budget on every turn change, whichever side moved. Urgency
// changes fire exactly once per threshold crossing, at the instant the
// remaining time equals the threshold.
type Governor struct {
	turnBudget  time.Duration
	matchBudget time.Duration
	warnAt      time.Duration
	dangerAt    time.Duration
	tick        time.Duration

	events   chan ClockEvent
	resets   chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

func NewGovernor(cfg Config) *Governor {
	return &Governor{
		turnBudget:  cfg.TurnDuration,
		matchBudget: cfg.MatchDuration,
		warnAt:      cfg.WarningAt,
		dangerAt:    cfg.DangerAt,
		tick:        time.Second,
		events:      make(chan ClockEvent, 4),
		resets:      make(chan struct{}, 1),
		stop:        make(chan struct{}),
	}
}

func (g *Governor) Events() <-chan ClockEvent {
	return g.events
}

func (g *Governor) Start() {
	go g.run()
}

// ResetTurn restores the per-turn clock to its full budget. The total
// match clock keeps running.
func (g *Governor) ResetTurn() {
	select {
	case g.resets <- struct{}{}:
	case <-g.stop:
	}
}

// Stop cancels both countdowns. Safe to call more than once.
func (g *Governor) Stop() {
	g.stopOnce.Do(func() {
		close(g.stop)
	})
}

func (g *Governor) run() {
	ticker := time.NewTicker(g.tick)
	defer ticker.Stop()
	defer close(g.events)

	turnRemaining := g.turnBudget
	matchRemaining := g.matchBudget
	urgency := UrgencyNormal

	for {
		select {
		case <-g.stop:
			return
		case <-g.resets:
			turnRemaining = g.turnBudget
			if urgency != UrgencyNormal {
				urgency = UrgencyNormal
				g.emit(ClockEvent{
					Kind:           UrgencyChanged,
					Urgency:        urgency,
					TurnRemaining:  turnRemaining,
					MatchRemaining: matchRemaining,
				})
			}
		case <-ticker.C:
			turnRemaining -= g.tick
			matchRemaining -= g.tick

			if matchRemaining <= 0 {
				logging.Info("match time exhausted")
				g.emit(ClockEvent{Kind: MatchExpired})
				return
			}

			// The cue fires at equality only, never again on the ticks
			// below the threshold.
			switch {
			case turnRemaining == g.dangerAt:
				urgency = UrgencyDanger
				g.emit(ClockEvent{
					Kind:           UrgencyChanged,
					Urgency:        urgency,
					TurnRemaining:  turnRemaining,
					MatchRemaining: matchRemaining,
				})
			case turnRemaining == g.warnAt:
				urgency = UrgencyWarning
				g.emit(ClockEvent{
					Kind:           UrgencyChanged,
					Urgency:        urgency,
					TurnRemaining:  turnRemaining,
					MatchRemaining: matchRemaining,
				})
			}

			if turnRemaining <= 0 {
				logging.Info("turn time exhausted", zap.Duration("match_remaining", matchRemaining))
				g.emit(ClockEvent{Kind: TurnExpired, MatchRemaining: matchRemaining})
				return
			}
		}
	}
}

func (g *Governor) emit(ev ClockEvent) {
	select {
	case g.events <- ev:
	case <-g.stop:
	}
}
