package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/UnifiedAI-ONeID/verbatim/internal/channel"
	"github.com/UnifiedAI-ONeID/verbatim/internal/utils"
)

// PipHandler serves the detached mini window. The mini window never owns
// state: it renders the last state_update it received and forwards stop
// intent. Closing it changes nothing about the recording.
type PipHandler struct {
	redis    *redis.Client
	log      *logrus.Logger
	upgrader websocket.Upgrader
}

func NewPipHandler(rdb *redis.Client, log *logrus.Logger) *PipHandler {
	return &PipHandler{
		redis: rdb,
		log:   log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

func (h *PipHandler) PipWS(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	clientID := c.Query("client_id")
	if clientID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "PipHandler.PipWS", "missing client_id", nil))
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

	bus := channel.NewRedisBus(h.redis, clientID, h.log)
	msgs, unsub := bus.Subscribe(ctx)
	defer unsub()

	// announce ourselves so the main window pushes an immediate snapshot
	_ = bus.Publish(ctx, channel.Message{Type: channel.TypePipReady})

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})

		for {
			_, data, rerr := conn.ReadMessage()
			if rerr != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			var msg channel.Message
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			if msg.Type == channel.TypeStopRecording {
				_ = bus.Publish(ctx, channel.Message{Type: channel.TypeStopRecording})
			}
		}
	}()

	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			return
		case m, ok := <-msgs:
			if !ok {
				return
			}
			// forward snapshots only; the mini window is render-only
			if m.Type != channel.TypeStateUpdate {
				continue
			}
			if werr := wc.writeText(m.Encode()); werr != nil {
				return
			}
		}
	}
}
