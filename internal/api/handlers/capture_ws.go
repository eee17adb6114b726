package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/UnifiedAI-ONeID/verbatim/internal/capabilities"
	"github.com/UnifiedAI-ONeID/verbatim/internal/channel"
	"github.com/UnifiedAI-ONeID/verbatim/internal/providers/llm"
	"github.com/UnifiedAI-ONeID/verbatim/internal/recorder"
	"github.com/UnifiedAI-ONeID/verbatim/internal/services"
	"github.com/UnifiedAI-ONeID/verbatim/internal/storage"
	"github.com/UnifiedAI-ONeID/verbatim/internal/utils"
)

// CaptureConfig carries the recorder policy knobs from the environment.
type CaptureConfig struct {
	MinDuration     time.Duration
	TooShortPolicy  string
	AnalysisTimeout time.Duration
}

// CaptureHandler owns the main-window recording socket. Text frames carry
// control messages, binary frames carry audio/webm chunks straight into the
// controller.
type CaptureHandler struct {
	users    services.UserService
	sessions services.SessionService
	blobs    storage.BlobStore
	gateway  llm.Gateway
	geocoder capabilities.Geocoder
	redis    *redis.Client
	manager  *recorder.Manager
	cfg      CaptureConfig
	log      *logrus.Logger
	upgrader websocket.Upgrader
}

func NewCaptureHandler(
	users services.UserService,
	sessions services.SessionService,
	blobs storage.BlobStore,
	gateway llm.Gateway,
	geocoder capabilities.Geocoder,
	rdb *redis.Client,
	manager *recorder.Manager,
	cfg CaptureConfig,
	log *logrus.Logger,
) *CaptureHandler {
	return &CaptureHandler{
		users:    users,
		sessions: sessions,
		blobs:    blobs,
		gateway:  gateway,
		geocoder: geocoder,
		redis:    rdb,
		manager:  manager,
		cfg:      cfg,
		log:      log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type captureClientMsg struct {
	Type     string                `json:"type"` // hello|start|stop|final
	ClientID string                `json:"client_id,omitempty"`
	Devices  []capabilities.Device `json:"devices,omitempty"`

	DeviceID  string   `json:"device_id,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteJSON(v)
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (h *CaptureHandler) CaptureWS(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	user, err := h.users.Get(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	enumerator := capabilities.NewClientEnumerator(nil)
	wake := capabilities.NewRelayWakeLock(func(acquire bool) error {
		return wc.writeJSON(gin.H{"type": "wake_lock", "acquire": acquire})
	}, h.log)

	var (
		ctrl     *recorder.Controller
		clientID string
	)

	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		mt, data, rerr := conn.ReadMessage()
		if rerr != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		if mt == websocket.BinaryMessage {
			if ctrl != nil {
				ctrl.Write(data)
			}
			continue
		}

		var msg captureClientMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = wc.writeText([]byte(`{"type":"error","code":"INVALID_ARGUMENT","message":"invalid json"}`))
			continue
		}

		switch msg.Type {
		case "hello":
			clientID = msg.ClientID
			if clientID == "" {
				clientID = uuid.NewString()
			}
			enumerator.SetDevices(msg.Devices)
			_ = wc.writeJSON(gin.H{"type": "hello_ack", "client_id": clientID})

		case "start":
			if clientID == "" {
				_ = wc.writeText([]byte(`{"type":"error","code":"FAILED_PRECONDITION","message":"hello required before start"}`))
				continue
			}
			if _, busy := h.manager.Lookup(clientID); busy {
				// one active capture per tab, never a silent double-start
				_ = wc.writeText([]byte(`{"type":"error","code":"FAILED_PRECONDITION","message":"a recording is already in progress"}`))
				continue
			}

			ctrl = recorder.New(recorder.Config{
				OwnerID:         userID,
				Locale:          user.Locale,
				MinDuration:     h.cfg.MinDuration,
				TooShortPolicy:  h.cfg.TooShortPolicy,
				AnalysisTimeout: h.cfg.AnalysisTimeout,
				KeepAwake:       user.KeepAwake,
				Online:          services.RedisOnlineProbe(h.redis),
			}, recorder.Deps{
				Store:    h.sessions,
				Blobs:    services.BlobAdapter{Blobs: h.blobs},
				Gateway:  h.gateway,
				Bus:      channel.NewRedisBus(h.redis, clientID, h.log),
				WakeLock: wake,
				Devices:  enumerator,
				Geocoder: h.geocoder,
				Logger:   h.log,
			})
			ctrl.AddObserver(recorder.ObserverFunc(func(state recorder.State, elapsed int64) {
				_ = wc.writeJSON(gin.H{"type": "state", "state": state, "elapsed": elapsed})
			}))

			sessionID, serr := ctrl.RequestStart(ctx, recorder.StartRequest{
				DeviceID:  msg.DeviceID,
				Latitude:  msg.Latitude,
				Longitude: msg.Longitude,
			})
			if serr != nil {
				ctrl = nil
				h.writeWSError(wc, serr)
				continue
			}
			h.manager.Register(clientID, ctrl)
			_ = wc.writeJSON(gin.H{"type": "started", "session_id": sessionID})

		case "stop":
			if ctrl == nil {
				_ = wc.writeText([]byte(`{"type":"error","code":"FAILED_PRECONDITION","message":"no active recording"}`))
				continue
			}
			if serr := ctrl.RequestStop(); serr != nil {
				h.writeWSError(wc, serr)
			}

		case "final":
			if ctrl == nil {
				_ = wc.writeText([]byte(`{"type":"error","code":"FAILED_PRECONDITION","message":"no active recording"}`))
				continue
			}
			// the recorder's completion signal: run the pipeline off the read
			// loop so further control messages keep flowing
			active := ctrl
			id := clientID
			go func() {
				defer h.manager.Unregister(id)
				sessionID := active.SessionID()
				// detached from the socket context: a tab closing right after
				// the final flush must not abort the upload
				if ferr := active.Finalize(context.Background(), nil); ferr != nil {
					h.log.WithError(ferr).Warn("finalize failed")
					return
				}
				_ = wc.writeJSON(gin.H{"type": "done", "session_id": sessionID})
			}()
			ctrl = nil

		default:
			_ = wc.writeText([]byte(`{"type":"error","code":"INVALID_ARGUMENT","message":"unknown message type"}`))
		}
	}

	// connection dropped mid-capture: stop and finalize with what we have
	if ctrl != nil && ctrl.State() == recorder.StateCapturing {
		_ = ctrl.RequestStop()
		id := clientID
		go func() {
			defer h.manager.Unregister(id)
			_ = ctrl.Finalize(context.Background(), nil)
		}()
	}
}

func (h *CaptureHandler) writeWSError(wc *wsConn, err error) {
	var ae *utils.AppError
	if errors.As(err, &ae) {
		_ = wc.writeJSON(gin.H{"type": "error", "code": ae.Code, "message": ae.Message})
		return
	}
	_ = wc.writeJSON(gin.H{"type": "error", "code": utils.CodeInternal, "message": "internal error"})
}
