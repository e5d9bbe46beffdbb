package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultReconnectAttempts bounds Reconnect before it fails permanently.
	DefaultReconnectAttempts = 5
	// DefaultReconnectDelay separates consecutive reconnect attempts.
	DefaultReconnectDelay = time.Second
)

// ReloadFunc re-fetches the authoritative collection for a kind and re-runs
// the grid assembly. Reloads for different kinds may run concurrently; each
// must recompute from a full snapshot so their results commute.
type ReloadFunc func(ctx context.Context, kind EntityKind)

// Handlers maps each watched kind to its reload callback.
type Handlers map[EntityKind]ReloadFunc

// Options tunes a Service. Zero values select the defaults.
type Options struct {
	GracePeriod       time.Duration
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	Logger            *slog.Logger
}

// Service is the realtime synchronization engine for one view. Create it on
// view mount, dispose it with UnsubscribeFromAll on unmount; independent
// instances never share state.
type Service struct {
	source Source
	cache  *OptimisticCache
	status *statusBoard
	logger *slog.Logger

	reconnectAttempts int
	reconnectDelay    time.Duration

	mu         sync.Mutex
	subscribed bool
	handlers   Handlers
	streams    map[EntityKind]Stream
	cancel     context.CancelFunc
	ctx        context.Context
	wg         sync.WaitGroup
}

// NewService builds a synchronization service over the given stream source.
func NewService(source Source, opts Options) *Service {
	attempts := opts.ReconnectAttempts
	if attempts <= 0 {
		attempts = DefaultReconnectAttempts
	}
	delay := opts.ReconnectDelay
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		source:            source,
		cache:             NewOptimisticCache(opts.GracePeriod, nil),
		status:            newStatusBoard(),
		logger:            logger,
		reconnectAttempts: attempts,
		reconnectDelay:    delay,
		streams:           make(map[EntityKind]Stream),
	}
}

// SubscribeToAll opens one change stream per watched entity kind. A stream
// that fails to open leaves its subscription disconnected and degrades the
// aggregate status; it does not fail the call. Calling while already
// subscribed returns ErrAlreadySubscribed.
func (s *Service) SubscribeToAll(ctx context.Context, handlers Handlers) error {
	s.mu.Lock()
	if s.subscribed {
		s.mu.Unlock()
		return ErrAlreadySubscribed
	}
	s.subscribed = true
	s.handlers = handlers
	subCtx, cancel := context.WithCancel(ctx)
	s.ctx = subCtx
	s.cancel = cancel
	s.mu.Unlock()

	for _, kind := range WatchedKinds() {
		s.openStream(subCtx, kind)
	}
	return nil
}

// openStream attempts one subscription and, on success, starts its worker.
func (s *Service) openStream(ctx context.Context, kind EntityKind) {
	s.status.set(kind, StatusConnecting)

	stream, err := s.source.Subscribe(ctx, kind)
	if err != nil {
		s.logger.Warn("change stream subscribe failed", "kind", kind, "error", err)
		s.status.set(kind, StatusDisconnected)
		return
	}

	s.mu.Lock()
	if !s.subscribed {
		// Torn down while we were subscribing.
		s.mu.Unlock()
		stream.Close()
		return
	}
	s.streams[kind] = stream
	s.mu.Unlock()

	s.status.set(kind, StatusConnected)

	s.wg.Add(1)
	go s.consume(ctx, kind, stream)
}

// consume pumps one stream until it ends. An end without teardown counts as
// a disconnect and only moves the status; the view keeps its last known good
// data.
func (s *Service) consume(ctx context.Context, kind EntityKind, stream Stream) {
	defer s.wg.Done()

	for event := range stream.Events() {
		s.cache.Put(event)
		s.mu.Lock()
		reload := s.handlers[kind]
		s.mu.Unlock()
		if reload != nil {
			reload(ctx, kind)
		}
	}

	s.mu.Lock()
	active := s.subscribed && s.streams[kind] == stream
	if active {
		delete(s.streams, kind)
	}
	s.mu.Unlock()

	if active && ctx.Err() == nil {
		s.logger.Warn("change stream disconnected", "kind", kind, "error", ErrStreamDisconnected)
		s.status.set(kind, StatusDisconnected)
	}
}

// Reconnect retries the disconnected subscriptions with a fixed delay
// between attempts. Once the attempt limit is exhausted it reports
// ErrReconnectFailed and never retries on its own again.
func (s *Service) Reconnect(ctx context.Context) error {
	s.mu.Lock()
	if !s.subscribed {
		s.mu.Unlock()
		return ErrReconnectFailed
	}
	subCtx := s.ctx
	s.mu.Unlock()

	for attempt := 1; attempt <= s.reconnectAttempts; attempt++ {
		if s.retryDisconnected(subCtx) {
			return nil
		}
		if attempt == s.reconnectAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-subCtx.Done():
			return ErrReconnectFailed
		case <-time.After(s.reconnectDelay):
		}
	}

	s.logger.Error("reconnect failed permanently", "attempts", s.reconnectAttempts)
	return ErrReconnectFailed
}

// retryDisconnected re-opens every stream currently down and reports whether
// the service ended up fully connected.
func (s *Service) retryDisconnected(ctx context.Context) bool {
	for _, kind := range WatchedKinds() {
		if s.status.kindStatus(kind) == StatusConnected {
			continue
		}
		s.openStream(ctx, kind)
	}
	return s.status.get() == StatusConnected
}

// UnsubscribeFromAll tears down every open stream and clears the optimistic
// cache. It is idempotent and safe to call when nothing is subscribed.
// In-flight reloads observe a cancelled context, so late fetch results are
// discarded instead of repainting a torn-down view.
func (s *Service) UnsubscribeFromAll() {
	s.mu.Lock()
	if !s.subscribed {
		s.mu.Unlock()
		return
	}
	s.subscribed = false
	cancel := s.cancel
	streams := s.streams
	s.streams = make(map[EntityKind]Stream)
	s.cancel = nil
	s.ctx = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, stream := range streams {
		stream.Close()
	}
	s.wg.Wait()

	s.cache.Clear()
	s.status.reset()
}

// Status reports the worst-case aggregate connection status.
func (s *Service) Status() Status {
	return s.status.get()
}

// KindStatus reports the connection status of a single subscription.
func (s *Service) KindStatus(kind EntityKind) Status {
	return s.status.kindStatus(kind)
}

// OnStatusChange registers a listener invoked exactly on aggregate status
// transitions.
func (s *Service) OnStatusChange(listener StatusListener) {
	s.status.subscribe(listener)
}

// Cached returns the optimistic cache entry for a key, if still live.
func (s *Service) Cached(kind EntityKind, id string) (CacheEntry, bool) {
	return s.cache.Get(kind, id)
}

// CacheLen reports the number of live optimistic entries.
func (s *Service) CacheLen() int {
	return s.cache.Len()
}
