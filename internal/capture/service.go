package capture

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"inputcap/internal/input"
	"inputcap/internal/logging"
)

var (
	ErrNilHook = errors.New("capture: hook is nil")
	ErrNilSink = errors.New("capture: sink is nil")

	// ErrSinkBusy is wrapped by sinks that shed an event under load
	ErrSinkBusy = errors.New("capture: sink busy")
)

// Option configures a Service
type Option func(*Service)

// WithLogger sets the logger used by the service and its loop
func WithLogger(l logging.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithContext sets the process-lifetime context handed to the hook.
// Cancelling it tears the subscription down for good.
func WithContext(ctx context.Context) Option {
	return func(s *Service) {
		if ctx != nil {
			s.ctx = ctx
		}
	}
}

// WithTap registers an observer that sees every native notification,
// including those delivered while Stopped. It never reaches the sink.
func WithTap(fn func(input.NativeEvent)) Option {
	return func(s *Service) { s.tap = fn }
}

// WithOnHookFailure registers a callback fired once if the hook fails
func WithOnHookFailure(fn func(error)) Option {
	return func(s *Service) { s.onHookFailure = fn }
}

// WithReadyTimeout logs a warning when the hook has not reported ready
// within d of the loop starting. Zero disables the check.
func WithReadyTimeout(d time.Duration) Option {
	return func(s *Service) { s.readyTimeout = d }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service is the start/stop façade over a single global input subscription.
//
// The subscription is registered on the first Start and lives until the
// process-lifetime context ends. Stop only suspends forwarding.
type Service struct {
	hook          Hook
	sink          Sink
	logger        logging.Logger
	ctx           context.Context
	tap           func(input.NativeEvent)
	onHookFailure func(error)
	readyTimeout  time.Duration
	now           func() time.Time

	// mu serializes transitions; listening is read lock-free by the loop
	mu         sync.Mutex
	registered bool
	listening  atomic.Bool

	subMu        sync.Mutex
	subscription SubscriptionState
	subErr       error
	subscribedAt time.Time

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}

	forwarded atomic.Uint64
	discarded atomic.Uint64
	failures  atomic.Uint64
}

// New creates a stopped service. No OS resources are touched until Start.
func New(hook Hook, sink Sink, opts ...Option) (*Service, error) {
	if hook == nil {
		return nil, ErrNilHook
	}
	if sink == nil {
		return nil, ErrNilSink
	}

	s := &Service{
		hook:         hook,
		sink:         sink,
		logger:       logging.Discard(),
		ctx:          context.Background(),
		now:          time.Now,
		subscription: SubscriptionNone,
		ready:        make(chan struct{}),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start enables forwarding. The first call registers the OS subscription
// on a dedicated goroutine; later calls only flip the flag. Start never
// blocks on the hook and never reports hook errors; see Status.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startLocked()
}

// Stop disables forwarding. The subscription stays registered. An event
// already past the flag check may still be delivered after Stop returns.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Toggle flips between Listening and Stopped and returns the new state
func (s *Service) Toggle() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listening.Load() {
		s.stopLocked()
		return Stopped
	}
	s.startLocked()
	return Listening
}

func (s *Service) startLocked() {
	if s.listening.Load() {
		return
	}
	s.listening.Store(true)
	s.logger.Info("Input listener started")

	if s.registered {
		return
	}
	s.registered = true
	s.setSubscription(SubscriptionPending, nil)
	go s.loop()
}

func (s *Service) stopLocked() {
	if s.listening.Swap(false) {
		s.logger.Info("Input listener stopped")
	}
}

// State reports whether events are currently forwarded
func (s *Service) State() State {
	if s.listening.Load() {
		return Listening
	}
	return Stopped
}

// Status returns a snapshot of the service and its subscription
func (s *Service) Status() Status {
	st := Status{
		State:           s.State(),
		Forwarded:       s.forwarded.Load(),
		Discarded:       s.discarded.Load(),
		ForwardFailures: s.failures.Load(),
	}
	st.Listening = st.State == Listening

	s.subMu.Lock()
	st.Subscription = s.subscription
	st.SubscribedAt = s.subscribedAt
	if s.subErr != nil {
		st.Error = s.subErr.Error()
	}
	s.subMu.Unlock()
	return st
}

// Done is closed when the capture loop has exited. It never closes if
// Start was never called.
func (s *Service) Done() <-chan struct{} {
	return s.done
}

func (s *Service) setSubscription(state SubscriptionState, err error) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subscription = state
	s.subErr = err
	if state == SubscriptionActive {
		s.subscribedAt = s.now()
	}
}

func (s *Service) loop() {
	defer close(s.done)

	// Some hook APIs bind the subscription to the installing thread
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if s.readyTimeout > 0 {
		go s.watchReady()
	}

	err := s.hook.Listen(s.ctx, loopHandler{s})
	if err != nil {
		s.logger.Error("Input hook failed, capture unavailable until restart", "err", err)
		s.setSubscription(SubscriptionFailed, err)
		if s.onHookFailure != nil {
			s.onHookFailure(err)
		}
		return
	}

	s.setSubscription(SubscriptionEnded, nil)
	s.logger.Warn("Input hook ended")
}

func (s *Service) watchReady() {
	timer := time.NewTimer(s.readyTimeout)
	defer timer.Stop()

	select {
	case <-s.ready:
	case <-s.done:
	case <-s.ctx.Done():
	case <-timer.C:
		s.logger.Warn("Input hook has not reported ready", "timeout", s.readyTimeout)
	}
}

func (s *Service) markReady() {
	s.readyOnce.Do(func() {
		s.setSubscription(SubscriptionActive, nil)
		close(s.ready)
		s.logger.Info("Input hook registered")
	})
}

func (s *Service) forward(n input.NativeEvent) {
	if s.tap != nil {
		s.tap(n)
	}
	if !s.listening.Load() {
		s.discarded.Add(1)
		return
	}

	ev := input.Normalize(n)
	if err := s.sink.Emit(EventName, ev); err != nil {
		s.failures.Add(1)
		s.logger.Debug("Dropped input event", "event_type", ev.Type, "err", err)
		return
	}
	s.forwarded.Add(1)
}

// loopHandler keeps Ready/Handle off the Service's public method set
type loopHandler struct {
	s *Service
}

func (h loopHandler) Ready() { h.s.markReady() }
func (h loopHandler) Handle(n input.NativeEvent) { h.s.forward(n) }
