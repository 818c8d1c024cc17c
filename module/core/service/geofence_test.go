package service

import (
	"errors"
	"testing"

	"github.com/nandanugg/proximity/module/core/domain"
)

const (
	berlinFence  = "u33dc0cr000100"
	hamburgFence = "u1x0etnq000250"
)

type mockChannel struct {
	subscribeErr     error
	subscribeCalls   int
	unsubscribeCalls int
	handler          func(payload []byte)
}

func (m *mockChannel) Subscribe(handle func(payload []byte)) error {
	m.subscribeCalls++
	if m.subscribeErr != nil {
		return m.subscribeErr
	}
	m.handler = handle
	return nil
}

func (m *mockChannel) Unsubscribe() error {
	m.unsubscribeCalls++
	m.handler = nil
	return nil
}

type mockRegistration struct {
	calls []bool
}

func (m *mockRegistration) SetRegistered(registered bool) {
	m.calls = append(m.calls, registered)
}

type geofenceCall struct {
	data  domain.GeofenceData
	entry bool
}

type recordingListener struct {
	name  string
	order *[]string
	calls []geofenceCall
}

func (l *recordingListener) OnGeofenceEvent(data domain.GeofenceData, entry bool) {
	l.calls = append(l.calls, geofenceCall{data: data, entry: entry})
	if l.order != nil {
		*l.order = append(*l.order, l.name)
	}
}

func newTestReceiver() (*GeofenceReceiver, *mockChannel, *mockRegistration) {
	ch := &mockChannel{}
	reg := &mockRegistration{}
	return NewGeofenceReceiver(ch, reg), ch, reg
}

func TestAddListener_Twice_RegistersOnce(t *testing.T) {
	r, ch, _ := newTestReceiver()
	l := &recordingListener{}

	if err := r.AddListener(l); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.AddListener(l); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if r.Listeners() != 1 {
		t.Fatalf("expected 1 listener, got %d", r.Listeners())
	}
	if ch.subscribeCalls != 1 {
		t.Errorf("expected 1 subscribe, got %d", ch.subscribeCalls)
	}
}

func TestAddListener_DistinctInstancesBothRegistered(t *testing.T) {
	r, ch, _ := newTestReceiver()

	_ = r.AddListener(&recordingListener{})
	_ = r.AddListener(&recordingListener{})

	if r.Listeners() != 2 {
		t.Fatalf("expected 2 listeners, got %d", r.Listeners())
	}
	if ch.subscribeCalls != 1 {
		t.Errorf("expected subscribe only for the first listener, got %d", ch.subscribeCalls)
	}
}

func TestAddListener_SubscribeError(t *testing.T) {
	r, ch, _ := newTestReceiver()
	ch.subscribeErr = errors.New("mqtt down")

	if err := r.AddListener(&recordingListener{}); err == nil {
		t.Fatal("expected error")
	}
	if r.Listeners() != 0 {
		t.Fatalf("expected empty registry, got %d", r.Listeners())
	}

	ch.subscribeErr = nil
	if err := r.AddListener(&recordingListener{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.subscribeCalls != 2 {
		t.Errorf("expected subscribe retried, got %d calls", ch.subscribeCalls)
	}
}

func TestRemoveListener_LastUnsubscribes(t *testing.T) {
	r, ch, _ := newTestReceiver()
	l := &recordingListener{}
	_ = r.AddListener(l)

	if err := r.RemoveListener(l); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Listeners() != 0 {
		t.Fatalf("expected 0 listeners, got %d", r.Listeners())
	}
	if ch.unsubscribeCalls != 1 {
		t.Errorf("expected 1 unsubscribe, got %d", ch.unsubscribeCalls)
	}
}

func TestRemoveListener_NotLastKeepsSubscription(t *testing.T) {
	r, ch, _ := newTestReceiver()
	a, b := &recordingListener{}, &recordingListener{}
	_ = r.AddListener(a)
	_ = r.AddListener(b)

	_ = r.RemoveListener(a)

	if r.Listeners() != 1 {
		t.Fatalf("expected 1 listener, got %d", r.Listeners())
	}
	if ch.unsubscribeCalls != 0 {
		t.Errorf("expected no unsubscribe, got %d", ch.unsubscribeCalls)
	}
}

func TestRemoveListener_UnknownIsNoop(t *testing.T) {
	r, ch, _ := newTestReceiver()
	_ = r.AddListener(&recordingListener{})

	if err := r.RemoveListener(&recordingListener{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Listeners() != 1 {
		t.Fatalf("expected 1 listener, got %d", r.Listeners())
	}
	if ch.unsubscribeCalls != 0 {
		t.Errorf("expected no unsubscribe, got %d", ch.unsubscribeCalls)
	}

	empty, emptyCh, _ := newTestReceiver()
	_ = empty.RemoveListener(&recordingListener{})
	if emptyCh.unsubscribeCalls != 0 {
		t.Errorf("expected no unsubscribe on empty registry, got %d", emptyCh.unsubscribeCalls)
	}
}

func TestOnReceive_SingleRegionEntry(t *testing.T) {
	r, ch, _ := newTestReceiver()
	a, b := &recordingListener{}, &recordingListener{}
	_ = r.AddListener(a)
	_ = r.AddListener(b)

	ch.handler([]byte(`{"transition":1,"geofences":["` + berlinFence + `"]}`))

	for _, l := range []*recordingListener{a, b} {
		if len(l.calls) != 1 {
			t.Fatalf("expected 1 notification, got %d", len(l.calls))
		}
		if !l.calls[0].entry {
			t.Error("expected entry notification")
		}
		if l.calls[0].data.Fence != berlinFence {
			t.Errorf("expected %s, got %s", berlinFence, l.calls[0].data.Fence)
		}
		if l.calls[0].data.Radius != 100 {
			t.Errorf("expected radius 100, got %d", l.calls[0].data.Radius)
		}
	}
}

func TestOnReceive_MultipleRegions(t *testing.T) {
	r, _, _ := newTestReceiver()
	l := &recordingListener{}
	_ = r.AddListener(l)

	r.OnReceive([]byte(`{"transition":1,"geofences":["` + berlinFence + `","` + hamburgFence + `"]}`))

	if len(l.calls) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(l.calls))
	}
	for _, c := range l.calls {
		if !c.entry {
			t.Error("expected every notification flagged as entry")
		}
	}
	if l.calls[1].data.Fence != hamburgFence {
		t.Errorf("expected %s second, got %s", hamburgFence, l.calls[1].data.Fence)
	}
}

func TestOnReceive_NonEntryTransitions(t *testing.T) {
	for _, payload := range []string{
		`{"transition":2,"geofences":["` + berlinFence + `"]}`,
		`{"transition":4,"geofences":["` + berlinFence + `"]}`,
	} {
		r, _, _ := newTestReceiver()
		l := &recordingListener{}
		_ = r.AddListener(l)

		r.OnReceive([]byte(payload))

		if len(l.calls) != 1 {
			t.Fatalf("expected 1 notification, got %d", len(l.calls))
		}
		if l.calls[0].entry {
			t.Errorf("expected non-entry for %s", payload)
		}
	}
}

func TestOnReceive_RegistrationOrder(t *testing.T) {
	r, _, _ := newTestReceiver()
	var order []string
	_ = r.AddListener(&recordingListener{name: "first", order: &order})
	_ = r.AddListener(&recordingListener{name: "second", order: &order})
	_ = r.AddListener(&recordingListener{name: "third", order: &order})

	r.OnReceive([]byte(`{"transition":1,"geofences":["` + berlinFence + `"]}`))

	want := []string{"first", "second", "third"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
}

func TestOnReceive_MalformedNeverNotifies(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{"nil", nil},
		{"invalid json", []byte("invalid")},
		{"no fences", []byte(`{"transition":1,"geofences":[]}`)},
		{"bad fence", []byte(`{"transition":1,"geofences":["` + berlinFence + `","nope"]}`)},
		{"other error code", []byte(`{"transition":1,"geofences":["` + berlinFence + `"],"error_code":1001}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, reg := newTestReceiver()
			l := &recordingListener{}
			_ = r.AddListener(l)

			r.OnReceive(tt.payload)

			if len(l.calls) != 0 {
				t.Errorf("expected no notifications, got %d", len(l.calls))
			}
			if len(reg.calls) != 0 {
				t.Errorf("expected registration untouched, got %v", reg.calls)
			}
		})
	}
}

func TestOnReceive_GeofenceNotAvailable(t *testing.T) {
	r, _, reg := newTestReceiver()
	l := &recordingListener{}
	_ = r.AddListener(l)

	r.OnReceive([]byte(`{"transition":1,"geofences":["` + berlinFence + `"],"error_code":1000}`))

	if len(l.calls) != 0 {
		t.Errorf("expected no notifications, got %d", len(l.calls))
	}
	if len(reg.calls) != 1 || reg.calls[0] {
		t.Errorf("expected SetRegistered(false), got %v", reg.calls)
	}
}

type selfRemovingListener struct {
	r     *GeofenceReceiver
	calls int
}

func (l *selfRemovingListener) OnGeofenceEvent(domain.GeofenceData, bool) {
	l.calls++
	_ = l.r.RemoveListener(l)
}

func TestOnReceive_ListenerMayRemoveItself(t *testing.T) {
	r, ch, _ := newTestReceiver()
	l := &selfRemovingListener{r: r}
	_ = r.AddListener(l)

	r.OnReceive([]byte(`{"transition":1,"geofences":["` + berlinFence + `"]}`))

	if l.calls != 1 {
		t.Fatalf("expected 1 notification, got %d", l.calls)
	}
	if r.Listeners() != 0 {
		t.Errorf("expected empty registry, got %d", r.Listeners())
	}
	if ch.unsubscribeCalls != 1 {
		t.Errorf("expected 1 unsubscribe, got %d", ch.unsubscribeCalls)
	}
}

func TestGeofenceManager(t *testing.T) {
	m := NewGeofenceManager(true)
	if !m.IsRegistered() {
		t.Fatal("expected registered")
	}
	m.SetRegistered(false)
	if m.IsRegistered() {
		t.Fatal("expected unregistered")
	}
}
