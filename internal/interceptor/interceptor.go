// Package interceptor puts the request filter in front of outgoing HTTP
// traffic: as a decision API, an http.Handler middleware, an
// http.RoundTripper and a forward proxy.
package interceptor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/aetherbrowser/aether/internal/filtering"
	"github.com/aetherbrowser/aether/internal/logging"
)

// ErrBlocked is returned by Transport for requests the filter refuses.
var ErrBlocked = errors.New("request blocked by content filter")

// Decider finds the rule that blocks a URL. *filtering.Filter implements it.
type Decider interface {
	Match(url string) (filtering.Rule, bool)
}

// MetricsRecorder receives decision metrics. *metrics.Recorder implements it.
type MetricsRecorder interface {
	ObserveDecision(blocked bool, took time.Duration)
	IncCacheHit()
	IncBypass()
}

type noopMetrics struct{}

func (noopMetrics) ObserveDecision(bool, time.Duration) {}
func (noopMetrics) IncCacheHit()                        {}
func (noopMetrics) IncBypass()                          {}

// Decision is the outcome for a single request.
type Decision struct {
	Blocked  bool
	Rule     filtering.Rule
	Cached   bool
	Bypassed bool
}

// BlockEvent is delivered to listeners for every blocked request.
type BlockEvent struct {
	URL    string
	Rule   filtering.Rule
	Method string
	At     time.Time
}

// Config configures an Interceptor.
type Config struct {
	// CacheSize bounds the decision cache. Zero disables caching.
	CacheSize int
	// Bypass is consulted before the filter. Optional.
	Bypass *BypassRegistry
	// Metrics receives decision metrics. Optional.
	Metrics MetricsRecorder
}

type cachedDecision struct {
	blocked bool
	rule    filtering.Rule
}

// Interceptor answers block/allow for outgoing requests.
type Interceptor struct {
	decider Decider
	cache   *lru.Cache[string, cachedDecision]
	bypass  *BypassRegistry
	metrics MetricsRecorder

	listenersMu sync.RWMutex
	listeners   []func(BlockEvent)

	log zerolog.Logger
}

// New creates an Interceptor around decider.
func New(ctx context.Context, decider Decider, cfg Config) (*Interceptor, error) {
	if decider == nil {
		return nil, errors.New("decider is nil")
	}

	i := &Interceptor{
		decider: decider,
		bypass:  cfg.Bypass,
		metrics: cfg.Metrics,
		log:     logging.Component(ctx, "interceptor"),
	}
	if i.metrics == nil {
		i.metrics = noopMetrics{}
	}

	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, cachedDecision](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create decision cache: %w", err)
		}
		i.cache = cache
	}

	return i, nil
}

// OnBlock registers fn to be called for every blocked request.
// Listeners run synchronously on the deciding goroutine.
func (i *Interceptor) OnBlock(fn func(BlockEvent)) {
	i.listenersMu.Lock()
	defer i.listenersMu.Unlock()
	i.listeners = append(i.listeners, fn)
}

// Decide evaluates url. method is only used to annotate block events.
func (i *Interceptor) Decide(method, url string) Decision {
	start := time.Now()

	if i.bypass != nil && i.bypass.Consume(url) {
		i.metrics.IncBypass()
		i.log.Debug().Str("url", url).Msg("bypass consumed")
		return Decision{Bypassed: true}
	}

	var d Decision
	if cached, ok := i.cacheGet(url); ok {
		i.metrics.IncCacheHit()
		d = Decision{Blocked: cached.blocked, Rule: cached.rule, Cached: true}
	} else {
		rule, blocked := i.decider.Match(url)
		d = Decision{Blocked: blocked, Rule: rule}
		i.cacheAdd(url, cachedDecision{blocked: blocked, rule: rule})
	}

	i.metrics.ObserveDecision(d.Blocked, time.Since(start))

	if d.Blocked {
		log := logging.ForURL(i.log, url)
		log.Info().Str("rule", string(d.Rule)).Str("method", method).Msg("blocked")
		i.emit(BlockEvent{URL: url, Rule: d.Rule, Method: method, At: start})
	}
	return d
}

func (i *Interceptor) cacheGet(url string) (cachedDecision, bool) {
	if i.cache == nil {
		return cachedDecision{}, false
	}
	return i.cache.Get(url)
}

func (i *Interceptor) cacheAdd(url string, d cachedDecision) {
	if i.cache == nil {
		return
	}
	i.cache.Add(url, d)
}

func (i *Interceptor) emit(ev BlockEvent) {
	i.listenersMu.RLock()
	listeners := i.listeners
	i.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn(ev)
	}
}
