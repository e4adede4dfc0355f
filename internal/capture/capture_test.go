package capture

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"inputcap/internal/input"
)

// blockingHook reports ready, hands its handler to the test and blocks
// until the context ends
type blockingHook struct {
	listens  atomic.Int32
	handlers chan Handler
	fail     error
}

func newBlockingHook() *blockingHook {
	return &blockingHook{handlers: make(chan Handler, 4)}
}

func (h *blockingHook) Listen(ctx context.Context, handler Handler) error {
	h.listens.Add(1)
	if h.fail != nil {
		return h.fail
	}
	handler.Ready()
	h.handlers <- handler
	<-ctx.Done()
	return nil
}

func (h *blockingHook) handler(t *testing.T) Handler {
	t.Helper()
	select {
	case handler := <-h.handlers:
		return handler
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for hook registration")
		return nil
	}
}

type recordingSink struct {
	mu     sync.Mutex
	names  []string
	events []input.InputEvent
	fail   func(n int) error
}

func (r *recordingSink) Emit(name string, ev input.InputEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.names)
	if r.fail != nil {
		if err := r.fail(n); err != nil {
			r.names = append(r.names, "")
			return err
		}
	}
	r.names = append(r.names, name)
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingSink) snapshot() []input.InputEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]input.InputEvent(nil), r.events...)
}

func newTestService(t *testing.T, hook Hook, sink Sink, opts ...Option) *Service {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	svc, err := New(hook, sink, append([]Option{WithContext(ctx)}, opts...)...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return svc
}

func TestNewRejectsNil(t *testing.T) {
	if _, err := New(nil, &recordingSink{}); !errors.Is(err, ErrNilHook) {
		t.Errorf("Expected ErrNilHook, got %v", err)
	}
	if _, err := New(newBlockingHook(), nil); !errors.Is(err, ErrNilSink) {
		t.Errorf("Expected ErrNilSink, got %v", err)
	}
}

func TestNewServiceIsStopped(t *testing.T) {
	hook := newBlockingHook()
	svc := newTestService(t, hook, &recordingSink{})

	st := svc.Status()
	if st.State != Stopped || st.Listening {
		t.Errorf("Expected stopped service, got %+v", st)
	}
	if st.Subscription != SubscriptionNone {
		t.Errorf("Expected no subscription, got %s", st.Subscription)
	}
	if hook.listens.Load() != 0 {
		t.Error("Expected hook to stay untouched before Start")
	}
}

func TestStartIsIdempotent(t *testing.T) {
	hook := newBlockingHook()
	svc := newTestService(t, hook, &recordingSink{})

	svc.Start()
	svc.Start()
	hook.handler(t)

	if got := hook.listens.Load(); got != 1 {
		t.Errorf("Expected 1 subscription, got %d", got)
	}
	if svc.State() != Listening {
		t.Errorf("Expected Listening, got %s", svc.State())
	}
	if st := svc.Status(); st.Subscription != SubscriptionActive {
		t.Errorf("Expected active subscription, got %s", st.Subscription)
	}
}

func TestStopWhenStopped(t *testing.T) {
	hook := newBlockingHook()
	svc := newTestService(t, hook, &recordingSink{})

	svc.Stop()
	svc.Stop()

	if svc.State() != Stopped {
		t.Errorf("Expected Stopped, got %s", svc.State())
	}
	if hook.listens.Load() != 0 {
		t.Error("Expected Stop to never register a subscription")
	}
}

func TestRestartReusesSubscription(t *testing.T) {
	hook := newBlockingHook()
	sink := &recordingSink{}
	svc := newTestService(t, hook, sink)

	svc.Start()
	h := hook.handler(t)
	svc.Stop()
	svc.Start()

	h.Handle(input.KeyPressed{Key: "KeyA"})

	if got := hook.listens.Load(); got != 1 {
		t.Errorf("Expected a single subscription across restarts, got %d", got)
	}
	if events := sink.snapshot(); len(events) != 1 {
		t.Errorf("Expected 1 forwarded event after restart, got %d", len(events))
	}
}

func TestStoppedDiscardsEvents(t *testing.T) {
	hook := newBlockingHook()
	sink := &recordingSink{}
	svc := newTestService(t, hook, sink)

	svc.Start()
	h := hook.handler(t)
	svc.Stop()

	h.Handle(input.ButtonPressed{Button: input.ButtonLeft})
	h.Handle(input.PointerMoved{X: 5, Y: 5})

	if events := sink.snapshot(); len(events) != 0 {
		t.Fatalf("Expected no events while stopped, got %d", len(events))
	}
	if st := svc.Status(); st.Discarded != 2 {
		t.Errorf("Expected 2 discarded events, got %d", st.Discarded)
	}
}

func TestForwardsInDeliveryOrder(t *testing.T) {
	hook := newBlockingHook()
	sink := &recordingSink{}
	svc := newTestService(t, hook, sink)

	svc.Start()
	h := hook.handler(t)

	const n = 200
	for i := 0; i < n; i++ {
		h.Handle(input.PointerMoved{X: int32(i), Y: int32(-i)})
	}

	events := sink.snapshot()
	if len(events) != n {
		t.Fatalf("Expected %d events, got %d", n, len(events))
	}
	for i, ev := range events {
		if ev.Type != input.MouseMove || *ev.MouseX != int32(i) || *ev.MouseY != int32(-i) {
			t.Fatalf("Event %d out of order: %+v", i, ev)
		}
	}
	if st := svc.Status(); st.Forwarded != n {
		t.Errorf("Expected forwarded counter %d, got %d", n, st.Forwarded)
	}
}

func TestEventsUseInputEventName(t *testing.T) {
	hook := newBlockingHook()
	sink := &recordingSink{}
	svc := newTestService(t, hook, sink)

	svc.Start()
	hook.handler(t).Handle(input.KeyReleased{Key: "Space"})

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.names) != 1 || sink.names[0] != "input-event" {
		t.Errorf("Expected event name 'input-event', got %v", sink.names)
	}
}

func TestForwardFailureDoesNotStopLoop(t *testing.T) {
	hook := newBlockingHook()
	sink := &recordingSink{fail: func(n int) error {
		if n == 0 {
			return errors.New("ui gone")
		}
		return nil
	}}
	svc := newTestService(t, hook, sink)

	svc.Start()
	h := hook.handler(t)
	h.Handle(input.KeyPressed{Key: "KeyA"})
	h.Handle(input.KeyPressed{Key: "KeyB"})

	events := sink.snapshot()
	if len(events) != 1 || *events[0].Key != "KeyB" {
		t.Fatalf("Expected only the second event to be delivered, got %+v", events)
	}
	st := svc.Status()
	if st.ForwardFailures != 1 || st.Forwarded != 1 {
		t.Errorf("Expected 1 failure and 1 forward, got %+v", st)
	}
	if st.State != Listening {
		t.Errorf("Expected service to keep listening, got %s", st.State)
	}
}

func TestHookFailureIsReported(t *testing.T) {
	hook := newBlockingHook()
	hook.fail = errors.New("accessibility permission denied")

	var calls atomic.Int32
	svc := newTestService(t, hook, &recordingSink{}, WithOnHookFailure(func(err error) {
		calls.Add(1)
	}))

	svc.Start()
	select {
	case <-svc.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for capture loop to exit")
	}

	st := svc.Status()
	if st.Subscription != SubscriptionFailed {
		t.Errorf("Expected failed subscription, got %s", st.Subscription)
	}
	if st.Error != "accessibility permission denied" {
		t.Errorf("Expected hook error text, got %q", st.Error)
	}
	if st.State != Listening {
		t.Errorf("Expected flag to stay Listening after hook failure, got %s", st.State)
	}

	// Never retried
	svc.Stop()
	svc.Start()
	if got := hook.listens.Load(); got != 1 {
		t.Errorf("Expected no retry after failure, got %d subscriptions", got)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("Expected failure callback once, got %d", got)
	}
}

func TestHookEndMarksEnded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hook := newBlockingHook()
	svc, err := New(hook, &recordingSink{}, WithContext(ctx))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	svc.Start()
	hook.handler(t)
	cancel()

	select {
	case <-svc.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for capture loop to exit")
	}
	if st := svc.Status(); st.Subscription != SubscriptionEnded {
		t.Errorf("Expected ended subscription, got %s", st.Subscription)
	}
}

func TestTapSeesEventsWhileStopped(t *testing.T) {
	hook := newBlockingHook()
	sink := &recordingSink{}

	var mu sync.Mutex
	var tapped []input.NativeEvent
	svc := newTestService(t, hook, sink, WithTap(func(n input.NativeEvent) {
		mu.Lock()
		tapped = append(tapped, n)
		mu.Unlock()
	}))

	svc.Start()
	h := hook.handler(t)
	svc.Stop()
	h.Handle(input.KeyPressed{Key: "F12"})

	mu.Lock()
	defer mu.Unlock()
	if len(tapped) != 1 {
		t.Errorf("Expected tap to observe 1 event, got %d", len(tapped))
	}
	if len(sink.snapshot()) != 0 {
		t.Error("Expected tap observation to bypass the sink")
	}
}

func TestToggle(t *testing.T) {
	hook := newBlockingHook()
	svc := newTestService(t, hook, &recordingSink{})

	if got := svc.Toggle(); got != Listening {
		t.Errorf("Expected first toggle to start, got %s", got)
	}
	hook.handler(t)
	if got := svc.Toggle(); got != Stopped {
		t.Errorf("Expected second toggle to stop, got %s", got)
	}
	if got := hook.listens.Load(); got != 1 {
		t.Errorf("Expected 1 subscription, got %d", got)
	}
}

func TestConcurrentStartStop(t *testing.T) {
	hook := newBlockingHook()
	svc := newTestService(t, hook, &recordingSink{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); svc.Start() }()
		go func() { defer wg.Done(); svc.Stop() }()
	}
	wg.Wait()

	svc.Start()
	hook.handler(t)
	if got := hook.listens.Load(); got != 1 {
		t.Errorf("Expected exactly 1 subscription under contention, got %d", got)
	}
	if svc.State() != Listening {
		t.Errorf("Expected Listening after final Start, got %s", svc.State())
	}
}

func TestReadyTimeoutKeepsPending(t *testing.T) {
	release := make(chan struct{})
	hook := HookFunc(func(ctx context.Context, h Handler) error {
		<-release
		return nil
	})
	defer close(release)

	svc := newTestService(t, hook, &recordingSink{}, WithReadyTimeout(10*time.Millisecond))
	svc.Start()
	time.Sleep(30 * time.Millisecond)

	if st := svc.Status(); st.Subscription != SubscriptionPending {
		t.Errorf("Expected pending subscription without Ready, got %s", st.Subscription)
	}
}

func TestSubscribedAtUsesClock(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	hook := newBlockingHook()
	svc := newTestService(t, hook, &recordingSink{}, WithClock(func() time.Time { return fixed }))

	svc.Start()
	hook.handler(t)

	if st := svc.Status(); !st.SubscribedAt.Equal(fixed) {
		t.Errorf("Expected subscribed_at %v, got %v", fixed, st.SubscribedAt)
	}
}

func TestScenarioClickWhileListening(t *testing.T) {
	hook := newBlockingHook()
	sink := &recordingSink{}
	svc := newTestService(t, hook, sink)

	svc.Start()
	hook.handler(t).Handle(input.ButtonPressed{Button: input.ButtonLeft})

	events := sink.snapshot()
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}

	data, err := json.Marshal(events[0])
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"event_type":"mouse_press","key":null,"mouse_x":null,"mouse_y":null,"button":"Left","wheel_dx":null,"wheel_dy":null}`
	if string(data) != want {
		t.Errorf("Expected payload %s, got %s", want, data)
	}
}

func TestStatusJSON(t *testing.T) {
	svc := newTestService(t, newBlockingHook(), &recordingSink{})

	data, err := json.Marshal(svc.Status())
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got["state"] != "stopped" || got["subscription"] != "none" {
		t.Errorf("Unexpected status payload: %s", data)
	}
}

func TestStatusJSONSubscribedAtOnlyWhenActive(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	hook := newBlockingHook()
	svc := newTestService(t, hook, &recordingSink{}, WithClock(func() time.Time { return fixed }))

	data, _ := json.Marshal(svc.Status())
	var before map[string]any
	json.Unmarshal(data, &before)
	if _, ok := before["subscribed_at"]; ok {
		t.Errorf("Expected no subscribed_at before the hook is ready, got %s", data)
	}

	svc.Start()
	hook.handler(t)

	data, _ = json.Marshal(svc.Status())
	var after map[string]any
	json.Unmarshal(data, &after)
	if after["subscribed_at"] != "2024-03-01T12:00:00Z" {
		t.Errorf("Expected subscribed_at once active, got %s", data)
	}
}
