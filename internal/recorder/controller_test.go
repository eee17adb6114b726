package recorder

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/UnifiedAI-ONeID/verbatim/internal/capabilities"
	"github.com/UnifiedAI-ONeID/verbatim/internal/channel"
	"github.com/UnifiedAI-ONeID/verbatim/internal/models"
	"github.com/UnifiedAI-ONeID/verbatim/internal/providers/llm"
	"github.com/UnifiedAI-ONeID/verbatim/internal/utils"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type storeUpdate struct {
	sessionID string
	fields    map[string]any
}

type fakeStore struct {
	mu      sync.Mutex
	created []*models.Session
	updates []storeUpdate
	deleted []string
}

func (s *fakeStore) Create(_ context.Context, sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.created = append(s.created, &cp)
	return nil
}

func (s *fakeStore) Update(_ context.Context, sessionID string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, storeUpdate{sessionID: sessionID, fields: fields})
	return nil
}

func (s *fakeStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, sessionID)
	return nil
}

func (s *fakeStore) lastUpdate(t *testing.T) storeUpdate {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.updates) == 0 {
		t.Fatal("no session updates recorded")
	}
	return s.updates[len(s.updates)-1]
}

type fakeBlobs struct {
	mu    sync.Mutex
	audio []byte
	calls int
	err   error
}

func (b *fakeBlobs) StoreAudio(_ context.Context, ownerID, sessionID, _ string, audio []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.err != nil {
		return "", b.err
	}
	b.audio = append([]byte(nil), audio...)
	return "gs://test-bucket/recordings/" + ownerID + "/" + sessionID + ".webm", nil
}

type fakeGateway struct {
	mu    sync.Mutex
	calls int
	res   *llm.Analysis
	err   error
}

func (g *fakeGateway) Analyze(_ context.Context, _ []byte, _, _, _ string) (*llm.Analysis, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.res, nil
}

func newTestController(store *fakeStore, blobs *fakeBlobs, gw *fakeGateway, clk *fakeClock, mutate func(*Config)) *Controller {
	cfg := Config{
		OwnerID:      "owner-1",
		Locale:       "en",
		TickInterval: time.Hour, // keep the ticker quiet unless a test wants it
		Now:          clk.Now,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg, Deps{Store: store, Blobs: blobs, Gateway: gw})
}

func startCapture(t *testing.T, c *Controller) string {
	t.Helper()
	id, err := c.RequestStart(context.Background(), StartRequest{})
	if err != nil {
		t.Fatalf("RequestStart: %v", err)
	}
	return id
}

func waitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", desc)
}

func TestRequestStartCreatesProvisionalSession(t *testing.T) {
	store := &fakeStore{}
	clk := newFakeClock()
	c := newTestController(store, &fakeBlobs{}, &fakeGateway{}, clk, nil)

	id := startCapture(t, c)

	if got := c.State(); got != StateCapturing {
		t.Fatalf("state = %q, want %q", got, StateCapturing)
	}
	if len(store.created) != 1 {
		t.Fatalf("created %d sessions, want 1", len(store.created))
	}
	sess := store.created[0]
	if sess.SessionID != id {
		t.Errorf("session id %q != returned id %q", sess.SessionID, id)
	}
	if sess.Status != models.SessionProcessing {
		t.Errorf("status = %q, want %q", sess.Status, models.SessionProcessing)
	}
	if sess.Metadata.Title == "" {
		t.Error("provisional session has no default title")
	}
	if sess.OwnerID != "owner-1" {
		t.Errorf("owner = %q", sess.OwnerID)
	}
}

func TestRequestStartWhileCapturingIsRejected(t *testing.T) {
	store := &fakeStore{}
	c := newTestController(store, &fakeBlobs{}, &fakeGateway{}, newFakeClock(), nil)

	startCapture(t, c)
	_, err := c.RequestStart(context.Background(), StartRequest{})
	if !utils.IsCode(err, utils.CodeFailedPrecondition) {
		t.Fatalf("second start: err = %v, want FAILED_PRECONDITION", err)
	}
	if len(store.created) != 1 {
		t.Fatalf("created %d sessions, want 1 (rejected start must not touch the store)", len(store.created))
	}
	if got := c.State(); got != StateCapturing {
		t.Fatalf("active capture disturbed: state = %q", got)
	}
}

func TestHappyPathCompletesAndReturnsToIdle(t *testing.T) {
	store := &fakeStore{}
	blobs := &fakeBlobs{}
	gw := &fakeGateway{res: &llm.Analysis{
		Transcript:  "Speaker 1: hello\nSpeaker 2: hi",
		Summary:     "Short sync.",
		ActionItems: []string{"Send notes"},
		Speakers:    []string{"Speaker 1", "Speaker 2"},
	}}
	clk := newFakeClock()
	c := newTestController(store, blobs, gw, clk, nil)

	id := startCapture(t, c)
	c.Write([]byte("chunk-1"))
	clk.Advance(5 * time.Second)
	if err := c.RequestStop(); err != nil {
		t.Fatalf("RequestStop: %v", err)
	}
	c.Write([]byte("chunk-2")) // recorder flush after stop still lands
	if err := c.Finalize(context.Background(), []byte("chunk-3")); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if got := c.State(); got != StateIdle {
		t.Fatalf("state after finalize = %q, want %q", got, StateIdle)
	}
	if !bytes.Equal(blobs.audio, []byte("chunk-1chunk-2chunk-3")) {
		t.Errorf("stored audio = %q", blobs.audio)
	}

	up := store.lastUpdate(t)
	if up.sessionID != id {
		t.Errorf("updated %q, want %q", up.sessionID, id)
	}
	if up.fields["status"] != models.SessionCompleted {
		t.Errorf("status = %v, want %q", up.fields["status"], models.SessionCompleted)
	}
	res, ok := up.fields["results"].(*models.Results)
	if !ok || res.Summary != "Short sync." {
		t.Errorf("results = %#v", up.fields["results"])
	}
	speakers, ok := up.fields["speakers"].(map[string]string)
	if !ok || speakers["Speaker 1"] != "Speaker 1" || speakers["Speaker 2"] != "Speaker 2" {
		t.Errorf("speakers = %#v, want identity map", up.fields["speakers"])
	}
	if up.fields["duration_seconds"] != int64(5) {
		t.Errorf("duration_seconds = %v, want 5", up.fields["duration_seconds"])
	}
	if up.fields["audio_ref"] == "" {
		t.Error("audio_ref missing from completion update")
	}
}

func TestTooShortRecordingIsNotUploaded(t *testing.T) {
	store := &fakeStore{}
	blobs := &fakeBlobs{}
	gw := &fakeGateway{}
	clk := newFakeClock()
	c := newTestController(store, blobs, gw, clk, nil)

	startCapture(t, c)
	c.Write([]byte("tiny"))
	clk.Advance(1 * time.Second)
	if err := c.RequestStop(); err != nil {
		t.Fatalf("RequestStop: %v", err)
	}
	if err := c.Finalize(context.Background(), nil); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if blobs.calls != 0 {
		t.Errorf("blob store called %d times for a too-short recording", blobs.calls)
	}
	if gw.calls != 0 {
		t.Errorf("gateway called %d times for a too-short recording", gw.calls)
	}
	up := store.lastUpdate(t)
	if up.fields["status"] != models.SessionError {
		t.Errorf("status = %v, want %q", up.fields["status"], models.SessionError)
	}
	if up.fields["error"] != "Recording was too short to analyze." {
		t.Errorf("error = %v", up.fields["error"])
	}
	if got := c.State(); got != StateIdle {
		t.Fatalf("state = %q, want idle", got)
	}
}

func TestTooShortDiscardPolicyDeletesSession(t *testing.T) {
	store := &fakeStore{}
	clk := newFakeClock()
	c := newTestController(store, &fakeBlobs{}, &fakeGateway{}, clk, func(cfg *Config) {
		cfg.TooShortPolicy = TooShortDiscard
	})

	id := startCapture(t, c)
	clk.Advance(500 * time.Millisecond)
	if err := c.RequestStop(); err != nil {
		t.Fatalf("RequestStop: %v", err)
	}
	if err := c.Finalize(context.Background(), nil); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if len(store.deleted) != 1 || store.deleted[0] != id {
		t.Fatalf("deleted = %v, want [%s]", store.deleted, id)
	}
	if len(store.updates) != 0 {
		t.Fatalf("unexpected updates for discarded session: %v", store.updates)
	}
}

func TestOfflineAtFinalizeDropsAudio(t *testing.T) {
	store := &fakeStore{}
	blobs := &fakeBlobs{}
	clk := newFakeClock()
	c := newTestController(store, blobs, &fakeGateway{}, clk, func(cfg *Config) {
		cfg.Online = func(context.Context) bool { return false }
	})

	startCapture(t, c)
	c.Write([]byte("audio"))
	clk.Advance(10 * time.Second)
	if err := c.RequestStop(); err != nil {
		t.Fatalf("RequestStop: %v", err)
	}
	if err := c.Finalize(context.Background(), nil); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if blobs.calls != 0 {
		t.Errorf("blob store called while offline")
	}
	up := store.lastUpdate(t)
	if up.fields["status"] != models.SessionError {
		t.Errorf("status = %v, want error", up.fields["status"])
	}
	if up.fields["error"] != "You appear to be offline. The recording was not saved." {
		t.Errorf("error = %v", up.fields["error"])
	}
}

func TestUploadFailureSkipsAnalysis(t *testing.T) {
	store := &fakeStore{}
	blobs := &fakeBlobs{err: errors.New("bucket unavailable")}
	gw := &fakeGateway{}
	clk := newFakeClock()
	c := newTestController(store, blobs, gw, clk, nil)

	startCapture(t, c)
	c.Write([]byte("audio"))
	clk.Advance(10 * time.Second)
	if err := c.RequestStop(); err != nil {
		t.Fatalf("RequestStop: %v", err)
	}
	if err := c.Finalize(context.Background(), nil); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if gw.calls != 0 {
		t.Error("gateway called after a failed upload")
	}
	up := store.lastUpdate(t)
	if up.fields["status"] != models.SessionError {
		t.Errorf("status = %v, want error", up.fields["status"])
	}
	if got := c.State(); got != StateIdle {
		t.Fatalf("state = %q, want idle", got)
	}
}

func TestAnalysisFailureKeepsAudioRef(t *testing.T) {
	store := &fakeStore{}
	blobs := &fakeBlobs{}
	gw := &fakeGateway{err: errors.New("model overloaded")}
	clk := newFakeClock()
	c := newTestController(store, blobs, gw, clk, nil)

	startCapture(t, c)
	c.Write([]byte("audio"))
	clk.Advance(10 * time.Second)
	if err := c.RequestStop(); err != nil {
		t.Fatalf("RequestStop: %v", err)
	}
	if err := c.Finalize(context.Background(), nil); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	up := store.lastUpdate(t)
	if up.fields["status"] != models.SessionError {
		t.Errorf("status = %v, want error", up.fields["status"])
	}
	if ref, _ := up.fields["audio_ref"].(string); ref == "" {
		t.Error("audio_ref missing: a later re-analysis needs the uploaded blob")
	}
}

func TestRequestStopClosesMiniWindow(t *testing.T) {
	c := newTestController(&fakeStore{}, &fakeBlobs{}, &fakeGateway{}, newFakeClock(), nil)

	closed := false
	c.SetMiniCloser(func() { closed = true })

	startCapture(t, c)
	if closed {
		t.Fatal("mini window closed on start")
	}
	if err := c.RequestStop(); err != nil {
		t.Fatalf("RequestStop: %v", err)
	}
	if !closed {
		t.Fatal("stopping the recording must close the mini window")
	}
	if got := c.State(); got != StateFinalizing {
		t.Fatalf("state = %q, want finalizing", got)
	}
}

func TestStopMessageFromBusStopsCapture(t *testing.T) {
	bus := channel.NewMemoryBus()
	defer bus.Close()
	clk := newFakeClock()
	store := &fakeStore{}
	c := New(Config{OwnerID: "owner-1", TickInterval: time.Hour, Now: clk.Now},
		Deps{Store: store, Blobs: &fakeBlobs{}, Gateway: &fakeGateway{}, Bus: bus})

	startCapture(t, c)
	if err := bus.Publish(context.Background(), channel.Message{Type: channel.TypeStopRecording}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	waitFor(t, "finalizing state", func() bool { return c.State() == StateFinalizing })
}

func TestPipReadyTriggersSnapshotBroadcast(t *testing.T) {
	bus := channel.NewMemoryBus()
	defer bus.Close()
	clk := newFakeClock()
	c := New(Config{OwnerID: "owner-1", TickInterval: time.Hour, Now: clk.Now},
		Deps{Store: &fakeStore{}, Blobs: &fakeBlobs{}, Gateway: &fakeGateway{}, Bus: bus})

	msgs, cancel := bus.Subscribe(context.Background())
	defer cancel()

	startCapture(t, c)

	// drain the start broadcast, then poke the bus like a fresh mini window
	waitForMessage(t, msgs, channel.TypeStateUpdate)
	if err := bus.Publish(context.Background(), channel.Message{Type: channel.TypePipReady}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	m := waitForMessage(t, msgs, channel.TypeStateUpdate)
	if !m.IsRecording {
		t.Error("snapshot after pip_ready reports not recording")
	}
}

func waitForMessage(t *testing.T, msgs <-chan channel.Message, typ string) channel.Message {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case m, ok := <-msgs:
			if !ok {
				t.Fatal("bus subscription closed")
			}
			if m.Type == typ {
				return m
			}
		case <-deadline:
			t.Fatalf("no %q message on bus", typ)
		}
	}
}

func TestTickerReportsElapsedSeconds(t *testing.T) {
	clk := newFakeClock()
	c := newTestController(&fakeStore{}, &fakeBlobs{}, &fakeGateway{}, clk, func(cfg *Config) {
		cfg.TickInterval = 5 * time.Millisecond
	})

	var mu sync.Mutex
	var last int64
	c.AddObserver(ObserverFunc(func(_ State, elapsed int64) {
		mu.Lock()
		last = elapsed
		mu.Unlock()
	}))

	startCapture(t, c)
	waitFor(t, "elapsed ticks", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return last >= 2
	})

	if err := c.RequestStop(); err != nil {
		t.Fatalf("RequestStop: %v", err)
	}
	if got := c.Elapsed(); got != 0 {
		t.Fatalf("elapsed after stop = %d, want 0", got)
	}
}

func TestFinalizeWithoutStopIsRejected(t *testing.T) {
	c := newTestController(&fakeStore{}, &fakeBlobs{}, &fakeGateway{}, newFakeClock(), nil)
	err := c.Finalize(context.Background(), nil)
	if !utils.IsCode(err, utils.CodeFailedPrecondition) {
		t.Fatalf("err = %v, want FAILED_PRECONDITION", err)
	}
}

func TestUnknownDeviceIsRejectedAsPermissionError(t *testing.T) {
	enum := &staticEnumerator{ids: []string{"mic-a"}}
	clk := newFakeClock()
	c := New(Config{OwnerID: "owner-1", TickInterval: time.Hour, Now: clk.Now},
		Deps{Store: &fakeStore{}, Blobs: &fakeBlobs{}, Gateway: &fakeGateway{}, Devices: enum})

	_, err := c.RequestStart(context.Background(), StartRequest{DeviceID: "mic-missing"})
	if !utils.IsCode(err, utils.CodeForbidden) {
		t.Fatalf("err = %v, want FORBIDDEN", err)
	}
	if got := c.State(); got != StateIdle {
		t.Fatalf("state = %q, want idle after rejected device", got)
	}
}

type staticEnumerator struct{ ids []string }

func (e *staticEnumerator) ListInputs(context.Context) ([]capabilities.Device, error) {
	out := make([]capabilities.Device, 0, len(e.ids))
	for _, id := range e.ids {
		out = append(out, capabilities.Device{ID: id, Label: id})
	}
	return out, nil
}
