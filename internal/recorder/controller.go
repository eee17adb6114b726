package recorder

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/UnifiedAI-ONeID/verbatim/internal/capabilities"
	"github.com/UnifiedAI-ONeID/verbatim/internal/channel"
	"github.com/UnifiedAI-ONeID/verbatim/internal/locale"
	"github.com/UnifiedAI-ONeID/verbatim/internal/models"
	"github.com/UnifiedAI-ONeID/verbatim/internal/providers/llm"
	"github.com/UnifiedAI-ONeID/verbatim/internal/utils"
)

// TooShortPolicy decides what happens to a sub-minimum recording.
const (
	TooShortPersist = "persist" // keep the session with status error
	TooShortDiscard = "discard" // delete the provisional session record
)

// SessionStore is the slice of the session store the controller needs.
// Update must merge fields, never overwrite the document, so controller
// writes and user renames can interleave safely.
type SessionStore interface {
	Create(ctx context.Context, s *models.Session) error
	Update(ctx context.Context, sessionID string, fields map[string]any) error
	Delete(ctx context.Context, sessionID string) error
}

// BlobStore persists the finalized audio.
type BlobStore interface {
	StoreAudio(ctx context.Context, ownerID, sessionID, contentType string, audio []byte) (ref string, err error)
}

// Analyzer is the analysis gateway boundary.
type Analyzer interface {
	Analyze(ctx context.Context, audio []byte, audioRef, prompt, loc string) (*llm.Analysis, error)
}

type Config struct {
	OwnerID string
	Locale  string // en|id

	MinDuration     time.Duration // below this the recording is not uploaded
	TooShortPolicy  string        // persist|discard
	AnalysisTimeout time.Duration // bounds upload + analysis together
	TickInterval    time.Duration // 1s; injectable for tests
	KeepAwake       bool          // hold the wake lock while capturing

	// Online reports whether the network is reachable at finalize time.
	Online func(ctx context.Context) bool

	// Now is the clock; injectable for tests.
	Now func() time.Time
}

func (c *Config) defaults() {
	if c.MinDuration <= 0 {
		c.MinDuration = 2 * time.Second
	}
	if c.TooShortPolicy == "" {
		c.TooShortPolicy = TooShortPersist
	}
	if c.AnalysisTimeout <= 0 {
		c.AnalysisTimeout = 2 * time.Minute
	}
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	if c.Online == nil {
		c.Online = func(context.Context) bool { return true }
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Controller owns one recording session end-to-end: the capture state
// machine, the elapsed ticker, the wake lock, the mini-window channel, and
// the upload/analysis handoff. Exactly one capture may be active at a time.
type Controller struct {
	cfg Config

	store    SessionStore
	blobs    BlobStore
	gateway  Analyzer
	bus      channel.Bus
	wake     capabilities.WakeLock
	devices  capabilities.Enumerator
	geocoder capabilities.Geocoder
	log      *logrus.Logger

	mu           sync.Mutex
	state        State
	elapsed      int64
	sessionID    string
	buf          bytes.Buffer
	captureStart time.Time
	stoppedAt    time.Time
	tickerStop   chan struct{}
	busCancel    func()
	closeMini    func()
	observers    []Observer
}

type Deps struct {
	Store    SessionStore
	Blobs    BlobStore
	Gateway  Analyzer
	Bus      channel.Bus
	WakeLock capabilities.WakeLock
	Devices  capabilities.Enumerator
	Geocoder capabilities.Geocoder
	Logger   *logrus.Logger
}

func New(cfg Config, d Deps) *Controller {
	cfg.defaults()
	if d.Logger == nil {
		d.Logger = logrus.New()
	}
	return &Controller{
		cfg:      cfg,
		store:    d.Store,
		blobs:    d.Blobs,
		gateway:  d.Gateway,
		bus:      d.Bus,
		wake:     d.WakeLock,
		devices:  d.Devices,
		geocoder: d.Geocoder,
		log:      d.Logger,
		state:    StateIdle,
	}
}

func (c *Controller) AddObserver(o Observer) {
	c.mu.Lock()
	c.observers = append(c.observers, o)
	c.mu.Unlock()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Elapsed() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}

func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// SetMiniCloser registers the open mini-window link. The controller owns the
// handle: stopping the recording closes the window, never the other way
// around.
func (c *Controller) SetMiniCloser(close func()) {
	c.mu.Lock()
	c.closeMini = close
	c.mu.Unlock()
}

// StartRequest carries everything the user gesture provides.
type StartRequest struct {
	DeviceID  string
	Latitude  *float64
	Longitude *float64
}

// RequestStart acquires the audio input and moves idle -> capturing. A start
// while already capturing is rejected without touching the active recorder.
func (c *Controller) RequestStart(ctx context.Context, req StartRequest) (string, error) {
	const op = "Controller.RequestStart"

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return "", utils.E(utils.CodeFailedPrecondition, op, "a recording is already in progress", nil)
	}
	c.mu.Unlock()

	if err := c.checkDevice(ctx, req.DeviceID); err != nil {
		// device/permission failure leaves the controller idle
		return "", utils.E(utils.CodeForbidden, op, locale.Lookup(c.cfg.Locale, locale.KeyPermissionDenied), err)
	}

	now := c.cfg.Now().UTC()
	sess := &models.Session{
		SessionID: newSessionID(),
		OwnerID:   c.cfg.OwnerID,
		Status:    models.SessionProcessing,
		Locale:    locale.Normalize(c.cfg.Locale),
		CreatedAt: now,
		Metadata: models.Metadata{
			Title:    fmt.Sprintf("%s %s", locale.Lookup(c.cfg.Locale, locale.KeyDefaultTitlePrefix), now.Format("2006-01-02 15:04")),
			Location: locale.Lookup(c.cfg.Locale, locale.KeyNoLocation),
		},
	}

	// best-effort location, bounded by the geocoder's own timeout
	if c.geocoder != nil && req.Latitude != nil && req.Longitude != nil {
		if place, err := c.geocoder.Resolve(ctx, *req.Latitude, *req.Longitude); err == nil {
			sess.Metadata.Location = place.Name
			sess.Metadata.MapURL = place.MapURL
		}
	}

	if err := c.store.Create(ctx, sess); err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to create session", err)
	}

	c.mu.Lock()
	if c.state != StateIdle {
		// lost the race to another start on the same controller
		c.mu.Unlock()
		_ = c.store.Delete(ctx, sess.SessionID)
		return "", utils.E(utils.CodeFailedPrecondition, op, "a recording is already in progress", nil)
	}
	c.sessionID = sess.SessionID
	c.state = StateCapturing
	c.elapsed = 0
	c.buf.Reset()
	c.captureStart = c.cfg.Now()
	stop := make(chan struct{})
	c.tickerStop = stop
	c.mu.Unlock()

	if c.cfg.KeepAwake && c.wake != nil {
		_ = c.wake.Acquire()
	}

	c.attachBus(ctx)
	go c.runTicker(ctx, stop)
	c.notify()
	c.broadcast(ctx)

	return sess.SessionID, nil
}

// Write feeds captured audio from the platform recorder. Chunks arriving
// after stop (the recorder's final flush) are still accepted while
// finalizing.
func (c *Controller) Write(p []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateCapturing || c.state == StateFinalizing {
		c.buf.Write(p)
	}
}

// RequestStop moves capturing -> finalizing. The pipeline itself runs when
// the recorder's completion signal arrives via Finalize.
func (c *Controller) RequestStop() error {
	const op = "Controller.RequestStop"

	c.mu.Lock()
	if c.state != StateCapturing {
		c.mu.Unlock()
		return utils.E(utils.CodeFailedPrecondition, op, "no active recording", nil)
	}
	c.state = StateFinalizing
	c.stoppedAt = c.cfg.Now()
	c.elapsed = 0
	if c.tickerStop != nil {
		close(c.tickerStop)
		c.tickerStop = nil
	}
	closeMini := c.closeMini
	c.closeMini = nil
	c.mu.Unlock()

	if c.wake != nil {
		c.wake.Release()
	}
	if closeMini != nil {
		closeMini()
	}

	c.notify()
	c.broadcast(context.Background())
	return nil
}

// Finalize is the platform recorder's completion signal: the last chunk has
// flushed and the blob is whole. It runs the discard/upload/analyze pipeline
// to its terminal session status and always leaves the controller idle.
func (c *Controller) Finalize(ctx context.Context, finalChunk []byte) error {
	const op = "Controller.Finalize"

	c.mu.Lock()
	if c.state != StateFinalizing {
		c.mu.Unlock()
		return utils.E(utils.CodeFailedPrecondition, op, "nothing to finalize", nil)
	}
	if len(finalChunk) > 0 {
		c.buf.Write(finalChunk)
	}
	sessionID := c.sessionID
	audio := make([]byte, c.buf.Len())
	copy(audio, c.buf.Bytes())
	c.buf.Reset()
	duration := c.stoppedAt.Sub(c.captureStart)
	c.mu.Unlock()

	defer c.finish(ctx)

	log := c.log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"duration_s": duration.Seconds(),
		"bytes":      len(audio),
	})

	endedAt := c.cfg.Now().UTC()
	durationSeconds := int64(duration.Seconds())

	if duration < c.cfg.MinDuration {
		log.Info("recording too short, discarding audio")
		if c.cfg.TooShortPolicy == TooShortDiscard {
			return c.store.Delete(ctx, sessionID)
		}
		return c.store.Update(ctx, sessionID, map[string]any{
			"status":           models.SessionError,
			"error":            locale.Lookup(c.cfg.Locale, locale.KeyTooShort),
			"ended_at":         endedAt,
			"duration_seconds": durationSeconds,
		})
	}

	if !c.cfg.Online(ctx) {
		log.Warn("offline at finalize, discarding audio")
		return c.store.Update(ctx, sessionID, map[string]any{
			"status":           models.SessionError,
			"error":            locale.Lookup(c.cfg.Locale, locale.KeyOffline),
			"ended_at":         endedAt,
			"duration_seconds": durationSeconds,
		})
	}

	// upload and analysis share one bounded deadline so a hung call cannot
	// leave the session processing forever
	pctx, cancel := context.WithTimeout(ctx, c.cfg.AnalysisTimeout)
	defer cancel()

	c.setState(StateUploading)
	ref, err := c.blobs.StoreAudio(pctx, c.cfg.OwnerID, sessionID, "audio/webm", audio)
	if err != nil {
		log.WithError(err).Error("audio upload failed")
		return c.store.Update(ctx, sessionID, map[string]any{
			"status":           models.SessionError,
			"error":            locale.Lookup(c.cfg.Locale, locale.KeyUploadFailed) + " " + err.Error(),
			"ended_at":         endedAt,
			"duration_seconds": durationSeconds,
		})
	}

	c.setState(StateAnalyzing)
	res, err := c.gateway.Analyze(pctx, audio, ref, locale.AnalysisPrompt(c.cfg.Locale), c.cfg.Locale)
	if err != nil {
		log.WithError(err).Error("analysis failed")
		return c.store.Update(ctx, sessionID, map[string]any{
			"status":           models.SessionError,
			"error":            locale.Lookup(c.cfg.Locale, locale.KeyAnalysisFailed) + " " + err.Error(),
			"audio_ref":        ref,
			"ended_at":         endedAt,
			"duration_seconds": durationSeconds,
		})
	}

	speakers := make(map[string]string, len(res.Speakers))
	for _, label := range res.Speakers {
		speakers[label] = label
	}

	log.Info("analysis complete")
	return c.store.Update(ctx, sessionID, map[string]any{
		"status": models.SessionCompleted,
		"results": &models.Results{
			Transcript:  res.Transcript,
			Summary:     res.Summary,
			ActionItems: res.ActionItems,
		},
		"speakers":         speakers,
		"audio_ref":        ref,
		"ended_at":         endedAt,
		"duration_seconds": durationSeconds,
	})
}

func (c *Controller) checkDevice(ctx context.Context, deviceID string) error {
	if c.devices == nil || deviceID == "" {
		return nil
	}
	inputs, err := c.devices.ListInputs(ctx)
	if err != nil {
		return err
	}
	for _, d := range inputs {
		if d.ID == deviceID {
			return nil
		}
	}
	return fmt.Errorf("unknown audio input %q", deviceID)
}

func (c *Controller) runTicker(ctx context.Context, stop <-chan struct{}) {
	t := time.NewTicker(c.cfg.TickInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			c.mu.Lock()
			if c.state != StateCapturing {
				c.mu.Unlock()
				return
			}
			c.elapsed++
			c.mu.Unlock()
			c.notify()
			c.broadcast(ctx)
		}
	}
}

func (c *Controller) attachBus(ctx context.Context) {
	if c.bus == nil {
		return
	}
	msgs, cancel := c.bus.Subscribe(ctx)
	c.mu.Lock()
	c.busCancel = cancel
	c.mu.Unlock()

	go func() {
		for m := range msgs {
			switch m.Type {
			case channel.TypePipReady:
				c.broadcast(ctx)
			case channel.TypeStopRecording:
				_ = c.RequestStop()
			}
		}
	}()
}

// broadcast publishes a full state snapshot; receivers render it as-is.
func (c *Controller) broadcast(ctx context.Context) {
	if c.bus == nil {
		return
	}
	c.mu.Lock()
	msg := channel.Message{
		Type:          channel.TypeStateUpdate,
		IsRecording:   c.state == StateCapturing,
		RecordingTime: c.elapsed,
	}
	c.mu.Unlock()
	_ = c.bus.Publish(ctx, msg)
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) notify() {
	c.mu.Lock()
	state, elapsed := c.state, c.elapsed
	obs := make([]Observer, len(c.observers))
	copy(obs, c.observers)
	c.mu.Unlock()
	for _, o := range obs {
		o.StateChanged(state, elapsed)
	}
}

// finish resets to idle regardless of session outcome.
func (c *Controller) finish(ctx context.Context) {
	c.mu.Lock()
	c.state = StateIdle
	c.elapsed = 0
	c.sessionID = ""
	cancel := c.busCancel
	c.busCancel = nil
	c.mu.Unlock()

	if c.wake != nil {
		c.wake.Release()
	}
	c.notify()
	c.broadcast(ctx)
	if cancel != nil {
		cancel()
	}
}
