package session

import (
	"context"
	stderrors "errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/conneroisu/pressify/internal/dispatch"
	"github.com/conneroisu/pressify/internal/task"
	"github.com/conneroisu/pressify/internal/watcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects the order of side effects across fakes.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fakeEnv struct {
	rec            *recorder
	session        *Session
	provisionErr   error
	startErr       error
	stopErr        error
	resolvedAtStop bool
}

func (f *fakeEnv) Provision(context.Context) error {
	f.rec.add("provision")
	return f.provisionErr
}

func (f *fakeEnv) Start(context.Context) error {
	f.rec.add("start")
	return f.startErr
}

func (f *fakeEnv) Stop(context.Context) error {
	f.rec.add("stop")
	if f.session != nil {
		f.resolvedAtStop = f.session.pending != nil && f.session.pending.Resolved()
	}
	return f.stopErr
}

type fakeServer struct {
	rec      *recorder
	startErr error
}

func (f *fakeServer) Start(context.Context) error {
	f.rec.add("serve")
	return f.startErr
}

func (f *fakeServer) Shutdown(context.Context) error {
	f.rec.add("shutdown")
	return nil
}

func (f *fakeServer) URL() string { return "http://127.0.0.1:3010" }

type fakeWatcher struct{ rec *recorder }

func (f *fakeWatcher) AddHandler(watcher.ChangeHandler) {}

func (f *fakeWatcher) Start(context.Context) error {
	f.rec.add("watch")
	return nil
}

func (f *fakeWatcher) Stop() error {
	f.rec.add("unwatch")
	return nil
}

type announcer struct {
	mu   sync.Mutex
	urls []string
}

func (a *announcer) DevServerReady(url string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.urls = append(a.urls, url)
}

func (a *announcer) list() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.urls...)
}

// harness builds a supervisor whose signal channel the test controls.
type harness struct {
	rec     *recorder
	env     *fakeEnv
	server  *fakeServer
	ready   *announcer
	signals chan chan<- os.Signal
	exits   chan int
	sup     *Supervisor
}

func newHarness(build func(rec *recorder) task.Node) *harness {
	h := &harness{
		rec:     &recorder{},
		ready:   &announcer{},
		signals: make(chan chan<- os.Signal, 1),
		exits:   make(chan int, 1),
	}
	h.env = &fakeEnv{rec: h.rec}
	h.server = &fakeServer{rec: h.rec}

	h.sup = NewSupervisor(Config{
		Environment: h.env,
		Runner:      task.NewScheduler(nil, nil),
		Build:       build(h.rec),
		Dispatcher:  dispatch.New(task.NewScheduler(nil, nil), nil, nil),
		Watcher:     &fakeWatcher{rec: h.rec},
		Server:      h.server,
		Announcer:   h.ready,
		Exit: func(code int) {
			h.rec.add("exit")
			h.exits <- code
		},
		Notify:     func(c chan<- os.Signal, _ ...os.Signal) { h.signals <- c },
		StopNotify: func(chan<- os.Signal) {},
	}, nil)
	h.env.session = h.sup.Session()
	return h
}

func okBuild(rec *recorder) task.Node {
	return task.New("build", func(context.Context) error {
		rec.add("build")
		return nil
	})
}

func TestCompletionResolvesOnce(t *testing.T) {
	c := newCompletion()
	assert.False(t, c.Resolved())

	c.Resolve()
	c.Resolve()

	assert.True(t, c.Resolved())
	select {
	case <-c.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestSessionRefusesSecondPendingCompletion(t *testing.T) {
	s := New(nil)

	first, err := s.Begin()
	require.NoError(t, err)

	_, err = s.Begin()
	assert.Error(t, err)

	first.Resolve()
	_, err = s.Begin()
	assert.NoError(t, err)
}

func TestSessionObserverTracksRebuilds(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	s.SetPhase(ctx, PhaseServing)

	b := dispatch.Binding{Pattern: "src/**"}
	s.RunStarted(ctx, b)
	s.RunStarted(ctx, b)
	assert.Equal(t, PhaseRebuilding, s.Phase())

	s.RunFinished(ctx, b, &task.Result{})
	assert.Equal(t, PhaseRebuilding, s.Phase())

	s.RunFinished(ctx, b, &task.Result{Err: stderrors.New("failed")})
	assert.Equal(t, PhaseServing, s.Phase())
}

func TestCoordinatorResolvesBeforeStopping(t *testing.T) {
	rec := &recorder{}
	s := New(nil)
	completion, err := s.Begin()
	require.NoError(t, err)

	env := &fakeEnv{rec: rec, session: s}
	var codes []int
	c := NewCoordinator(s, env, func(code int) { codes = append(codes, code) }, nil)

	c.OnInterrupt(context.Background())
	c.OnInterrupt(context.Background())

	assert.True(t, completion.Resolved())
	assert.True(t, env.resolvedAtStop)
	assert.Equal(t, []string{"stop"}, rec.list())
	assert.Equal(t, []int{0}, codes)
	assert.Equal(t, PhaseTeardown, s.Phase())
}

func TestCoordinatorExitsEvenWhenStopFails(t *testing.T) {
	rec := &recorder{}
	s := New(nil)
	env := &fakeEnv{rec: rec, stopErr: stderrors.New("compose down failed")}
	var codes []int

	NewCoordinator(s, env, func(code int) { codes = append(codes, code) }, nil).OnInterrupt(context.Background())

	assert.Equal(t, []int{0}, codes)
}

func TestDevServesUntilInterrupt(t *testing.T) {
	h := newHarness(okBuild)

	done := make(chan error, 1)
	go func() { done <- h.sup.Dev(context.Background()) }()

	sig := <-h.signals
	require.Eventually(t, func() bool { return len(h.ready.list()) > 0 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, PhaseServing, h.sup.Session().Phase())
	assert.Equal(t, []string{"http://127.0.0.1:3010"}, h.ready.list())

	sig <- os.Interrupt

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Dev did not return after interrupt")
	}

	assert.Equal(t, 0, <-h.exits)
	assert.True(t, h.env.resolvedAtStop)
	assert.Equal(t, PhaseTerminated, h.sup.Session().Phase())
	assert.Equal(t, []string{"provision", "start", "build", "serve", "watch", "stop", "exit", "unwatch", "shutdown"}, h.rec.list())
}

func TestDevProvisioningFailureIsFatal(t *testing.T) {
	h := newHarness(okBuild)
	h.env.provisionErr = stderrors.New("template missing")

	err := h.sup.Dev(context.Background())

	require.Error(t, err)
	assert.Equal(t, []string{"provision"}, h.rec.list())
	assert.Equal(t, PhaseTerminated, h.sup.Session().Phase())
}

func TestDevStartFailureIsFatal(t *testing.T) {
	h := newHarness(okBuild)
	h.env.startErr = stderrors.New("compose up failed")

	err := h.sup.Dev(context.Background())

	require.Error(t, err)
	assert.Equal(t, []string{"provision", "start"}, h.rec.list())
}

func TestDevInitialBuildFailureStopsEnvironment(t *testing.T) {
	h := newHarness(func(*recorder) task.Node {
		return task.New("theme", func(context.Context) error { return stderrors.New("build not found") })
	})

	err := h.sup.Dev(context.Background())

	require.Error(t, err)
	assert.Equal(t, []string{"provision", "start", "stop"}, h.rec.list())
	assert.Equal(t, PhaseTerminated, h.sup.Session().Phase())
	assert.Empty(t, h.exits)
}

func TestDevToleratesPipelineFailuresInInitialBuild(t *testing.T) {
	h := newHarness(func(*recorder) task.Node {
		return task.Stream("styles", func(context.Context) error { return stderrors.New("bad css") })
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.sup.Dev(ctx) }()

	require.Eventually(t, func() bool { return h.sup.Session().Phase() == PhaseServing }, 2*time.Second, 5*time.Millisecond)
	cancel()

	require.NoError(t, <-done)
	assert.Contains(t, h.rec.list(), "stop")
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "serving", PhaseServing.String())
	assert.Equal(t, "environment-starting", PhaseEnvironmentStarting.String())
	assert.Equal(t, "unknown", Phase(99).String())
}
