package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/fjod/go_cart/storefront/pkg/circuitbreaker"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// ErrUnsynced marks a value served from memory because its last write never reached the backend.
var ErrUnsynced = errors.New("value not yet persisted")

// ErrEncode marks a SaveAll that failed before anything was written or staged.
var ErrEncode = errors.New("encode failed")

type Outcome int

const (
	OutcomeOK Outcome = iota
	// OutcomeMissing means the key was never saved.
	OutcomeMissing
	// OutcomeDegraded means the backend could not be used and memory stood in for it.
	OutcomeDegraded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeMissing:
		return "missing"
	case OutcomeDegraded:
		return "degraded"
	}
	return "unknown"
}

// Result reports how a load or save was served. Err is set only when degraded.
type Result struct {
	Outcome Outcome
	Err     error
}

func (r Result) Degraded() bool {
	return r.Outcome == OutcomeDegraded
}

// Record is a typed value waiting to be encoded and written.
type Record struct {
	Key   string
	Value any
}

type Option func(*Persister)

// WithBreaker overrides the default circuit breaker settings.
func WithBreaker(cfg circuitbreaker.Config) Option {
	return func(p *Persister) {
		p.breakerCfg = cfg
	}
}

// WithDegradedHook registers fn to be called with "load" or "save" on every degraded operation.
func WithDegradedHook(fn func(op string)) Option {
	return func(p *Persister) {
		p.onDegraded = fn
	}
}

// Persister wraps a Store with JSON encoding, a circuit breaker and an in-memory
// overlay. Reads and writes never fail hard: backend trouble is reported through Result.
type Persister struct {
	store      Store
	log        *zap.Logger
	breakerCfg circuitbreaker.Config
	cb         *gobreaker.CircuitBreaker[[]byte]
	onDegraded func(op string)

	mu      sync.RWMutex
	overlay map[string][]byte
}

func NewPersister(store Store, log *zap.Logger, opts ...Option) *Persister {
	p := &Persister{
		store:      store,
		log:        log,
		breakerCfg: circuitbreaker.DefaultConfig("storage"),
		overlay:    make(map[string][]byte),
		onDegraded: func(string) {},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.breakerCfg.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, ErrNotFound)
	}
	p.cb = circuitbreaker.New[[]byte](p.breakerCfg, log)
	return p
}

// Load decodes the value stored under key, or returns def when it is missing,
// unreadable or malformed.
func Load[T any](ctx context.Context, p *Persister, key string, def T) (T, Result) {
	data, res := p.read(ctx, key)
	if res.Outcome == OutcomeMissing || (res.Degraded() && data == nil) {
		return def, res
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		p.log.Warn("malformed persisted data, using default",
			zap.String("key", key),
			zap.Error(err),
		)
		p.onDegraded("load")
		return def, Result{Outcome: OutcomeDegraded, Err: fmt.Errorf("malformed data at %q: %w", key, err)}
	}
	return v, res
}

func (p *Persister) read(ctx context.Context, key string) ([]byte, Result) {
	p.mu.RLock()
	pending, ok := p.overlay[key]
	p.mu.RUnlock()
	if ok {
		return pending, Result{Outcome: OutcomeDegraded, Err: ErrUnsynced}
	}

	data, err := p.cb.Execute(func() ([]byte, error) {
		return p.store.Get(ctx, key)
	})
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, Result{Outcome: OutcomeMissing}
	case err != nil:
		p.log.Warn("storage read failed", zap.String("key", key), zap.Error(err))
		p.onDegraded("load")
		return nil, Result{Outcome: OutcomeDegraded, Err: fmt.Errorf("failed to read %q: %w", key, err)}
	}
	return data, Result{Outcome: OutcomeOK}
}

// Save overwrites key with the JSON encoding of value.
func (p *Persister) Save(ctx context.Context, key string, value any) Result {
	return p.SaveAll(ctx, Record{Key: key, Value: value})
}

// SaveAll writes every record in one atomic backend call. On failure all of
// them are kept in memory so later loads still observe them.
func (p *Persister) SaveAll(ctx context.Context, records ...Record) Result {
	entries := make([]Entry, 0, len(records))
	for _, r := range records {
		data, err := json.Marshal(r.Value)
		if err != nil {
			p.onDegraded("save")
			return Result{Outcome: OutcomeDegraded, Err: fmt.Errorf("%w: %q: %w", ErrEncode, r.Key, err)}
		}
		entries = append(entries, Entry{Key: r.Key, Value: data})
	}

	_, err := p.cb.Execute(func() ([]byte, error) {
		return nil, p.store.Put(ctx, entries...)
	})

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		for _, e := range entries {
			p.overlay[e.Key] = e.Value
		}
		p.log.Warn("storage write failed, keeping data in memory",
			zap.Strings("keys", keysOf(entries)),
			zap.Error(err),
		)
		p.onDegraded("save")
		return Result{Outcome: OutcomeDegraded, Err: fmt.Errorf("failed to write: %w", err)}
	}
	for _, e := range entries {
		delete(p.overlay, e.Key)
	}
	return Result{Outcome: OutcomeOK}
}

// Unsynced lists keys whose latest value lives only in memory.
func (p *Persister) Unsynced() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	keys := make([]string, 0, len(p.overlay))
	for k := range p.overlay {
		keys = append(keys, k)
	}
	return keys
}

func (p *Persister) Close() error {
	return p.store.Close()
}

func keysOf(entries []Entry) []string {
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys
}
