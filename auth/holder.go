package auth

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"motorsporthub/models"
)

// Source is where a Holder gets its session from.
type Source interface {
	GetSession(ctx context.Context, key string) (*models.Session, error)
	OnSessionChange(key string, fn func(Event)) *Subscription
}

// Holder holds the current session of one browser. It is filled once from the
// persisted session and then kept current by session change events.
type Holder struct {
	key     string
	current atomic.Pointer[models.Session]

	mu      sync.Mutex
	changed bool

	ready     chan struct{}
	readyOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
	lastUsed  atomic.Int64
}

func startHolder(parent context.Context, key string, src Source, logger zerolog.Logger) *Holder {
	ctx, cancel := context.WithCancel(parent)
	h := &Holder{
		key:    key,
		ready:  make(chan struct{}),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	sub := src.OnSessionChange(key, func(ev Event) {
		h.publish(ev.Session, true)
	})

	go func() {
		defer close(h.done)
		defer sub.Close()

		s, err := src.GetSession(ctx, key)
		if err != nil {
			logger.Warn().Err(err).Msg("session retrieval failed, continuing signed out")
			s = nil
		}
		h.publish(s, false)

		<-ctx.Done()
	}()

	return h
}

// publish replaces the current session. The initial load never overwrites a
// value that already came from a change event.
func (h *Holder) publish(s *models.Session, fromEvent bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if fromEvent {
		h.changed = true
		h.current.Store(s)
	} else if !h.changed {
		h.current.Store(s)
	}
	h.readyOnce.Do(func() { close(h.ready) })
}

// Current returns the latest published session, or nil.
func (h *Holder) Current() *models.Session {
	return h.current.Load()
}

// Ready is closed once the first session value has been published.
func (h *Holder) Ready() <-chan struct{} {
	return h.ready
}

// Wait blocks until the holder is ready or ctx is done.
func (h *Holder) Wait(ctx context.Context) error {
	select {
	case <-h.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the holder and releases its subscription.
func (h *Holder) Close() {
	h.cancel()
	<-h.done
}

func (h *Holder) touch(now time.Time) {
	h.lastUsed.Store(now.UnixNano())
}

func (h *Holder) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, h.lastUsed.Load()))
}

// Registry owns the holders of all browsers and closes the ones left idle.
type Registry struct {
	src    Source
	idle   time.Duration
	logger zerolog.Logger
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	holders map[string]*Holder
}

func NewRegistry(src Source, idle time.Duration, logger zerolog.Logger) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		src:     src,
		idle:    idle,
		logger:  logger,
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
		holders: make(map[string]*Holder),
	}
}

// Acquire returns the holder of key, starting one if needed.
func (r *Registry) Acquire(key string) *Holder {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.holders[key]
	if !ok {
		h = startHolder(r.ctx, key, r.src, r.logger.With().Str("browser", key).Logger())
		r.holders[key] = h
	}
	h.touch(r.now())
	return h
}

// Len returns the number of live holders.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.holders)
}

// Sweep closes holders idle for longer than the idle timeout and returns how many it closed.
func (r *Registry) Sweep() int {
	now := r.now()

	r.mu.Lock()
	var stale []*Holder
	for key, h := range r.holders {
		if h.idleSince(now) > r.idle {
			stale = append(stale, h)
			delete(r.holders, key)
		}
	}
	r.mu.Unlock()

	for _, h := range stale {
		h.Close()
	}
	return len(stale)
}

// Run sweeps idle holders until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.idle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Debug().Int("closed", n).Msg("swept idle session holders")
			}
		}
	}
}

// Close stops every holder.
func (r *Registry) Close() {
	r.cancel()

	r.mu.Lock()
	holders := r.holders
	r.holders = make(map[string]*Holder)
	r.mu.Unlock()

	for _, h := range holders {
		h.Close()
	}
}
