package datasource

import (
	"context"
	"errors"
	"sync"
	"time"

	cb "github.com/sony/gobreaker"

	"insider-radar/internal/types"
)

// BreakerSettings tune the per-source circuit breakers
type BreakerSettings struct {
	MaxFailures uint32
	OpenTimeout time.Duration
	Interval    time.Duration
}

// BreakerSet holds one circuit breaker per quote source so a dead provider
// is skipped quickly for the rest of a scan
type BreakerSet struct {
	mu       sync.Mutex
	settings BreakerSettings
	breakers map[string]*cb.CircuitBreaker
	onChange func(name string, from, to string)
}

func NewBreakerSet(settings BreakerSettings) *BreakerSet {
	if settings.MaxFailures == 0 {
		settings.MaxFailures = 5
	}
	return &BreakerSet{
		settings: settings,
		breakers: make(map[string]*cb.CircuitBreaker),
	}
}

// OnStateChange registers a hook called on every breaker transition
func (b *BreakerSet) OnStateChange(fn func(name string, from, to string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = fn
}

func (b *BreakerSet) get(name string) *cb.CircuitBreaker {
	b.mu.Lock()
	defer b.mu.Unlock()

	if breaker, ok := b.breakers[name]; ok {
		return breaker
	}

	st := cb.Settings{Name: name}
	st.Interval = b.settings.Interval
	st.Timeout = b.settings.OpenTimeout
	maxFailures := b.settings.MaxFailures
	st.ReadyToTrip = func(counts cb.Counts) bool {
		return counts.ConsecutiveFailures >= maxFailures
	}
	// an unknown symbol or a caller cancellation says nothing about source health
	st.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, types.ErrNoQuoteData) || errors.Is(err, context.Canceled)
	}
	st.OnStateChange = func(name string, from, to cb.State) {
		b.mu.Lock()
		hook := b.onChange
		b.mu.Unlock()
		if hook != nil {
			hook(name, from.String(), to.String())
		}
	}

	breaker := cb.NewCircuitBreaker(st)
	b.breakers[name] = breaker
	return breaker
}

// Execute runs fn through the breaker for source. An open breaker returns
// gobreaker.ErrOpenState without calling fn.
func (b *BreakerSet) Execute(source string, fn func() (any, error)) (any, error) {
	return b.get(source).Execute(fn)
}

// State reports the breaker state for source ("closed", "open", "half-open")
func (b *BreakerSet) State(source string) string {
	return b.get(source).State().String()
}

// States reports every breaker created so far, keyed by source
func (b *BreakerSet) States() map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()

	states := make(map[string]string, len(b.breakers))
	for name, breaker := range b.breakers {
		states[name] = breaker.State().String()
	}
	return states
}
