package circuit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/davidbz/synthd/internal/domain"
	"github.com/davidbz/synthd/internal/observability"
)

// EventStateChanged is published whenever a provider circuit changes state.
const EventStateChanged = "circuit.state_changed"

const (
	defaultThreshold = 3
	defaultWindow    = 60 * time.Second
	defaultCooldown  = 30 * time.Second
)

// Config contains circuit breaker thresholds.
type Config struct {
	// Threshold is the number of consecutive failures that opens the circuit.
	Threshold int `env:"BREAKER_FAILURE_THRESHOLD" envDefault:"3"`
	// Window is the span, measured from the first failure of a streak, within
	// which Threshold failures must occur to open the circuit.
	Window time.Duration `env:"BREAKER_FAILURE_WINDOW" envDefault:"60s"`
	// Cooldown is how long an open circuit waits before allowing a trial.
	Cooldown time.Duration `env:"BREAKER_COOLDOWN" envDefault:"30s"`
}

// DefaultConfig returns K=3, W=60s, cooldown 30s.
func DefaultConfig() Config {
	return Config{
		Threshold: defaultThreshold,
		Window:    defaultWindow,
		Cooldown:  defaultCooldown,
	}
}

// Option customizes a Breaker.
type Option func(*Breaker)

// WithClock replaces the wall clock.
func WithClock(clock clockz.Clock) Option {
	return func(b *Breaker) {
		b.clock = clock
	}
}

// WithStateChangeHook registers a callback for state transitions.
func WithStateChangeHook(hook StateChangeFunc) Option {
	return func(b *Breaker) {
		if hook != nil {
			b.hooks = append(b.hooks, hook)
		}
	}
}

// WithEventPublisher publishes every state transition as a
// circuit.state_changed event.
func WithEventPublisher(events domain.EventPublisher) Option {
	return WithStateChangeHook(func(name string, from, to State) {
		if events == nil {
			return
		}
		events.Publish(context.Background(), EventStateChanged, map[string]interface{}{
			"provider": name,
			"from":     from.String(),
			"to":       to.String(),
		})
	})
}

type providerCircuit struct {
	mu            sync.Mutex
	state         State
	failures      int
	streakStart   time.Time
	lastFailure   time.Time
	openedAt      time.Time
	trialInFlight bool
}

var _ domain.CircuitBreaker = (*Breaker)(nil)

type transition struct {
	from, to State
}

// Breaker keeps an independent circuit per provider. Circuits are created on
// first use and indexed by provider name; each has its own lock.
type Breaker struct {
	config   Config
	clock    clockz.Clock
	circuits sync.Map // map[string]*providerCircuit
	hooks    []StateChangeFunc
}

// NewBreaker creates a circuit breaker (DI constructor).
func NewBreaker(config Config, opts ...Option) *Breaker {
	if config.Threshold <= 0 {
		config.Threshold = defaultThreshold
	}
	if config.Window <= 0 {
		config.Window = defaultWindow
	}
	if config.Cooldown <= 0 {
		config.Cooldown = defaultCooldown
	}

	b := &Breaker{
		config: config,
		clock:  clockz.RealClock,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Breaker) circuit(name string) *providerCircuit {
	if c, ok := b.circuits.Load(name); ok {
		return c.(*providerCircuit)
	}
	c, _ := b.circuits.LoadOrStore(name, &providerCircuit{})
	return c.(*providerCircuit)
}

// Allow reports whether an attempt on the provider may proceed. An open
// circuit past its cooldown moves to half-open and grants exactly one trial;
// further callers are refused until that trial reports back.
func (b *Breaker) Allow(name string) bool {
	c := b.circuit(name)
	now := b.clock.Now()

	c.mu.Lock()
	var changed *transition
	allowed := false

	switch c.state {
	case StateClosed:
		allowed = true
	case StateOpen:
		if now.Sub(c.openedAt) >= b.config.Cooldown {
			changed = c.moveTo(StateHalfOpen)
			c.trialInFlight = true
			allowed = true
		}
	case StateHalfOpen:
		if !c.trialInFlight {
			c.trialInFlight = true
			allowed = true
		}
	}
	c.mu.Unlock()

	b.notify(name, changed)
	return allowed
}

// RecordSuccess closes the circuit and clears the failure streak.
func (b *Breaker) RecordSuccess(name string) {
	c := b.circuit(name)

	c.mu.Lock()
	c.failures = 0
	c.trialInFlight = false
	changed := c.moveTo(StateClosed)
	c.mu.Unlock()

	b.notify(name, changed)
}

// RecordFailure extends the failure streak. A failure arriving more than the
// window after the streak began starts a new streak. Reaching the threshold
// opens the circuit; a failed half-open trial reopens it.
func (b *Breaker) RecordFailure(name string) {
	c := b.circuit(name)
	now := b.clock.Now()

	c.mu.Lock()
	if c.failures == 0 || now.Sub(c.streakStart) > b.config.Window {
		c.failures = 0
		c.streakStart = now
	}
	c.failures++
	c.lastFailure = now

	var changed *transition
	switch c.state {
	case StateClosed:
		if c.failures >= b.config.Threshold {
			changed = c.moveTo(StateOpen)
			c.openedAt = now
		}
	case StateHalfOpen:
		c.trialInFlight = false
		changed = c.moveTo(StateOpen)
		c.openedAt = now
	case StateOpen:
	}
	c.mu.Unlock()

	b.notify(name, changed)
}

// Release hands back a half-open trial that ended without a verdict, such as
// when the caller cancelled. The circuit stays half-open.
func (b *Breaker) Release(name string) {
	c := b.circuit(name)

	c.mu.Lock()
	c.trialInFlight = false
	c.mu.Unlock()
}

// State returns the current state without triggering cooldown transitions.
func (b *Breaker) State(name string) State {
	return b.Snapshot(name).State
}

// Snapshot returns a copy of the provider's circuit.
func (b *Breaker) Snapshot(name string) Snapshot {
	c := b.circuit(name)

	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		Name:                name,
		State:               c.state,
		StateName:           c.state.String(),
		ConsecutiveFailures: c.failures,
		LastFailure:         c.lastFailure,
		OpenedAt:            c.openedAt,
		TrialInFlight:       c.trialInFlight,
	}
}

// Snapshots returns every known circuit ordered by provider name.
func (b *Breaker) Snapshots() []Snapshot {
	var names []string
	b.circuits.Range(func(key, _ any) bool {
		names = append(names, key.(string))
		return true
	})
	sort.Strings(names)

	snapshots := make([]Snapshot, 0, len(names))
	for _, name := range names {
		snapshots = append(snapshots, b.Snapshot(name))
	}
	return snapshots
}

// Reset returns the provider's circuit to closed.
func (b *Breaker) Reset(name string) {
	c := b.circuit(name)

	c.mu.Lock()
	c.failures = 0
	c.trialInFlight = false
	c.streakStart = time.Time{}
	c.lastFailure = time.Time{}
	c.openedAt = time.Time{}
	changed := c.moveTo(StateClosed)
	c.mu.Unlock()

	b.notify(name, changed)
}

func (c *providerCircuit) moveTo(to State) *transition {
	if c.state == to {
		return nil
	}
	from := c.state
	c.state = to
	if to == StateClosed {
		c.openedAt = time.Time{}
	}
	return &transition{from: from, to: to}
}

func (b *Breaker) notify(name string, changed *transition) {
	if changed == nil {
		return
	}

	observability.FromContext(context.Background()).Info("circuit state changed",
		observability.String("provider", name),
		observability.String("from", changed.from.String()),
		observability.String("to", changed.to.String()))

	for _, hook := range b.hooks {
		hook(name, changed.from, changed.to)
	}
}
