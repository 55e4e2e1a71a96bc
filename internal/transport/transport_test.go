package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/bombastic-viewer/internal/api"
	"github.com/DoyleJ11/bombastic-viewer/internal/fakeserver"
	"github.com/DoyleJ11/bombastic-viewer/internal/input"
	"github.com/DoyleJ11/bombastic-viewer/pkg/wire"
)

// helper: receive the next event of the given kind with a timeout so tests never hang
func recvEvent(t *testing.T, ch <-chan Event, kind EventKind, within time.Duration) Event {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case ev := <-ch:
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event kind %d", kind)
			return Event{} // unreachable
		}
	}
}

func recvState(t *testing.T, ch <-chan Event, want State, within time.Duration) {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case ev := <-ch:
			if ev.Kind == EventState && ev.State == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %s", want)
		}
	}
}

// scriptedAPI answers global reads from a queue of (frame, release) pairs.
type scriptedAPI struct {
	mu      sync.Mutex
	calls   int
	frames  []string
	gates   []chan struct{}
	actions []string
}

func (s *scriptedAPI) ReadGlobalState(ctx context.Context) (string, error) {
	s.mu.Lock()
	i := s.calls
	s.calls++
	s.mu.Unlock()

	if i >= len(s.frames) {
		<-ctx.Done()
		return "", ctx.Err()
	}
	select {
	case <-s.gates[i]:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return s.frames[i], nil
}

func (s *scriptedAPI) ReadPlayerState(ctx context.Context, uid string) (wire.PlayerStatus, error) {
	raw, err := s.ReadGlobalState(ctx)
	return wire.PlayerStatus{UID: uid, Game: raw}, err
}

func (s *scriptedAPI) SendAction(_ context.Context, _ string, action string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = append(s.actions, action)
	return nil
}

func (s *scriptedAPI) sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.actions...)
}

func TestPoll_DeliversInArrivalOrder(t *testing.T) {
	slow, fast := make(chan struct{}), make(chan struct{})
	fake := &scriptedAPI{frames: []string{"old", "new"}, gates: []chan struct{}{slow, fast}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewPoll(fake, "uid", 5*time.Millisecond, ViewGlobal, nil)
	events := make(chan Event, 16)
	go func() { _ = p.Run(ctx, events) }()

	recvState(t, events, Ready, time.Second)

	// Let both reads get issued, then finish the second one first.
	require.Eventually(t, func() bool {
		fake.mu.Lock()
		defer fake.mu.Unlock()
		return fake.calls >= 2
	}, time.Second, time.Millisecond)
	close(fast)
	first := recvEvent(t, events, EventFrame, time.Second)
	close(slow)
	second := recvEvent(t, events, EventFrame, time.Second)

	assert.Equal(t, "new", first.Frame)
	assert.Equal(t, "old", second.Frame, "stale response still applied after the fresh one")
}

func TestPoll_PlayerViewCarriesStatus(t *testing.T) {
	gate := make(chan struct{})
	close(gate)
	fake := &scriptedAPI{frames: []string{"S1S"}, gates: []chan struct{}{gate}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewPoll(fake, "abc", 5*time.Millisecond, ViewPlayer, nil)
	events := make(chan Event, 16)
	go func() { _ = p.Run(ctx, events) }()

	ev := recvEvent(t, events, EventFrame, time.Second)
	assert.Equal(t, "S1S", ev.Frame)
	require.NotNil(t, ev.Status)
	assert.Equal(t, "abc", ev.Status.UID)
}

func TestPoll_SendRequiresReady(t *testing.T) {
	fake := &scriptedAPI{}
	p := NewPoll(fake, "abc", time.Hour, ViewGlobal, nil)

	err := p.Send(context.Background(), input.ActionBomb)
	if !errors.Is(err, ErrTransportUnavailable) {
		t.Fatalf("want ErrTransportUnavailable, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan Event, 4)
	go func() { _ = p.Run(ctx, events) }()
	recvState(t, events, Ready, time.Second)

	require.NoError(t, p.Send(ctx, input.ActionLeft))
	require.Eventually(t, func() bool { return len(fake.sent()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"LEFT"}, fake.sent())
}

func TestPoll_RunStopsOnCancel(t *testing.T) {
	p := NewPoll(&scriptedAPI{}, "abc", time.Millisecond, ViewGlobal, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, make(chan Event, 64)) }()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
	assert.Equal(t, Disconnected, p.State())
}

type pushFixture struct {
	srv    *fakeserver.Server
	client *api.Client
	wsURL  string
}

func newPushFixture(t *testing.T, frame string) pushFixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv := fakeserver.New(ctx, frame)
	rest := httptest.NewServer(fakeserver.Routes(srv))
	t.Cleanup(rest.Close)
	push := httptest.NewServer(fakeserver.PushHandler(srv))
	t.Cleanup(push.Close)

	c, err := api.NewClient(rest.URL, rest.Client())
	require.NoError(t, err)
	return pushFixture{srv: srv, client: c, wsURL: "ws" + strings.TrimPrefix(push.URL, "http")}
}

func TestPush_BindsUIDThenStreamsFrames(t *testing.T) {
	fx := newPushFixture(t, "S S\nB.B\nS1S")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	player, err := fx.client.CreatePlayer(ctx, "push")
	require.NoError(t, err)

	p := NewPush(fx.client, fx.wsURL, player.UID, Retry{}, nil)
	require.ErrorIs(t, p.Send(ctx, input.ActionBomb), ErrTransportUnavailable)

	events := make(chan Event, 16)
	go func() { _ = p.Run(ctx, events) }()

	recvState(t, events, Ready, time.Second)
	first := recvEvent(t, events, EventFrame, time.Second)
	assert.Equal(t, "S S\nB.B\nS1S", first.Frame)
	require.NotNil(t, first.Status)
	assert.Equal(t, player.UID, first.Status.UID)

	fx.srv.Inbox() <- fakeserver.Publish{Frame: "S S\nBxB\nS1S"}
	next := recvEvent(t, events, EventFrame, time.Second)
	assert.Equal(t, "S S\nBxB\nS1S", next.Frame)

	require.NoError(t, p.Send(ctx, input.ActionBomb))
	require.NoError(t, p.Send(ctx, input.ActionUp))
	require.Eventually(t, func() bool { return len(fx.srv.View().Actions) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []fakeserver.ActionRecord{
		{UID: player.UID, Action: "BOMB"},
		{UID: player.UID, Action: "UP"},
	}, fx.srv.View().Actions)
}

func TestPush_GivesUpWithoutRetries(t *testing.T) {
	dead := httptest.NewServer(nil)
	wsURL := "ws" + strings.TrimPrefix(dead.URL, "http")
	dead.Close()

	p := NewPush(&scriptedAPI{}, wsURL, "abc", Retry{}, nil)
	events := make(chan Event, 16)

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background(), events) }()

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrTransportUnavailable)
	case <-time.After(2 * time.Second):
		t.Fatalf("Run kept going with zero retry attempts")
	}
	assert.Equal(t, Disconnected, p.State())
}

func TestPush_RetriesBounded(t *testing.T) {
	var dials atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dials.Add(1)
		http.Error(w, "no upgrade here", http.StatusNotFound)
	}))
	defer ts.Close()

	p := NewPush(&scriptedAPI{}, "ws"+strings.TrimPrefix(ts.URL, "http"), "abc",
		Retry{Attempts: 2, Base: time.Millisecond, Max: 2 * time.Millisecond}, nil)

	err := p.Run(context.Background(), make(chan Event, 64))
	require.ErrorIs(t, err, ErrTransportUnavailable)
	assert.Equal(t, int32(3), dials.Load(), "one initial dial plus two retries")
}

func TestPush_ReconnectEmitsResync(t *testing.T) {
	fx := newPushFixture(t, "S S\nB.B\nS1S")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	player, err := fx.client.CreatePlayer(ctx, "push")
	require.NoError(t, err)

	p := NewPush(fx.client, fx.wsURL, player.UID,
		Retry{Attempts: 2, Base: 10 * time.Millisecond, Max: 10 * time.Millisecond}, nil)
	events := make(chan Event, 64)
	go func() { _ = p.Run(ctx, events) }()

	recvState(t, events, Ready, time.Second)
	recvEvent(t, events, EventFrame, time.Second)

	fx.srv.Inbox() <- fakeserver.DropConnections{}
	recvState(t, events, Disconnected, time.Second)
	recvState(t, events, Ready, time.Second)
	recvEvent(t, events, EventResync, time.Second)

	// the rebound channel streams again
	next := recvEvent(t, events, EventFrame, time.Second)
	require.NotNil(t, next.Status)
	assert.Equal(t, player.UID, next.Status.UID)
	require.Eventually(t, func() bool { return fx.srv.View().Subscribers == 1 }, time.Second, 5*time.Millisecond)
}

func TestPush_StaleUIDSurfacesNotice(t *testing.T) {
	fx := newPushFixture(t, "S S\nB.B\nS1S")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewPush(fx.client, fx.wsURL, "stale", Retry{}, nil)
	events := make(chan Event, 16)
	go func() { _ = p.Run(ctx, events) }()

	ev := recvEvent(t, events, EventNotice, time.Second)
	assert.Equal(t, fakeserver.InvalidUIDReply, ev.Notice)
	assert.Zero(t, fx.srv.View().Subscribers)
}

func TestServerNotice(t *testing.T) {
	cases := []struct {
		name string
		data string
		want string
		ok   bool
	}{
		{name: "bare text", data: "Invalid player UID", want: "Invalid player UID", ok: true},
		{name: "json string", data: `"Invalid player UID"`, want: "Invalid player UID", ok: true},
		{name: "status object", data: `{"game":"..."}`},
		{name: "broken object", data: `{"game":`},
		{name: "empty", data: "  "},
		{name: "empty json string", data: `""`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := serverNotice([]byte(tc.data))
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRetry_Delay(t *testing.T) {
	r := Retry{Attempts: 5, Base: 100 * time.Millisecond, Max: time.Second}
	assert.Equal(t, 100*time.Millisecond, r.Delay(1))
	assert.Equal(t, 200*time.Millisecond, r.Delay(2))
	assert.Equal(t, 800*time.Millisecond, r.Delay(4))
	assert.Equal(t, time.Second, r.Delay(5))
	assert.Equal(t, time.Second, r.Delay(30))
}

func TestPushURL(t *testing.T) {
	u, _ := url.Parse("http://example.com:21513")
	assert.Equal(t, "ws://example.com:9000/", PushURL(u, DefaultPushPort))

	u, _ = url.Parse("https://example.com")
	assert.Equal(t, "wss://example.com:9443/", PushURL(u, 9443))
}

func TestParseView(t *testing.T) {
	v, err := ParseView("global")
	require.NoError(t, err)
	assert.Equal(t, ViewGlobal, v)

	_, err = ParseView("fog")
	assert.Error(t, err)
}
