// Package engine provides the tick-based simulation loop and the World
// aggregate the agents live in.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// TickSchedule defines when each layer runs relative to the tick counter.
// One tick is one simulated second.
const (
	TicksPerSimDay  = 1000
	TicksPerSimWeek = 7 * TicksPerSimDay
)

// Engine drives the simulation forward.
type Engine struct {
	Interval time.Duration // Base tick interval at speed 1

	mu      sync.Mutex
	tick    uint64 // Monotonic, never resets
	speed   float64
	cancel  context.CancelFunc
	running bool

	// Callbacks for each tick layer, populated during setup.
	OnTick func(tick uint64) // Every tick
	OnDay  func(tick uint64) // Every TicksPerSimDay ticks
	OnWeek func(tick uint64) // Every TicksPerSimWeek ticks
}

// NewEngine creates a simulation engine resuming after tick start.
func NewEngine(start uint64) *Engine {
	return &Engine{
		Interval: time.Second,
		tick:     start,
		speed:    1.0,
	}
}

// Tick returns the last tick processed.
func (e *Engine) Tick() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}

// Speed returns the current multiplier: 1.0 = real-time, 0 = paused.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the multiplier. Negative values pause.
func (e *Engine) SetSpeed(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speed = max(0, v)
}

// Running reports whether Run is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Run starts the simulation loop. Blocks until ctx is done, Stop is called
// or maxTicks ticks have run (0 = unbounded).
func (e *Engine) Run(ctx context.Context, maxTicks uint64) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.Lock()
	e.cancel = cancel
	e.running = true
	start := e.tick
	e.mu.Unlock()

	slog.Info("simulation engine started", "tick", start, "speed", e.Speed())
	defer func() {
		e.mu.Lock()
		e.running = false
		e.cancel = nil
		e.mu.Unlock()
		slog.Info("simulation engine stopped", "tick", e.Tick())
	}()

	for {
		if ctx.Err() != nil {
			return
		}
		if maxTicks > 0 && e.Tick()-start >= maxTicks {
			return
		}
		speed := e.Speed()
		if speed <= 0 {
			// Paused; check again shortly.
			if !sleepCtx(ctx, 100*time.Millisecond) {
				return
			}
			continue
		}

		began := time.Now()
		e.Step()

		// Sleep for the remainder of the tick interval, adjusted for speed.
		target := time.Duration(float64(e.Interval) / speed)
		if elapsed := time.Since(began); elapsed < target {
			if !sleepCtx(ctx, target-elapsed) {
				return
			}
		}
	}
}

// Stop halts a running loop.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}

// Step advances the simulation by one tick.
func (e *Engine) Step() {
	e.mu.Lock()
	e.tick++
	tick := e.tick
	e.mu.Unlock()

	if e.OnTick != nil {
		e.OnTick(tick)
	}
	if tick%TicksPerSimDay == 0 && e.OnDay != nil {
		e.OnDay(tick)
	}
	if tick%TicksPerSimWeek == 0 && e.OnWeek != nil {
		e.OnWeek(tick)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// SimTime returns a human-readable simulation time from a tick number.
func SimTime(tick uint64) string {
	day := tick/TicksPerSimDay + 1
	sec := tick % TicksPerSimDay
	return fmt.Sprintf("Day %d, %03d", day, sec)
}
