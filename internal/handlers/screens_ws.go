package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/dronesight/dronesight-backend/internal/logger"
	"github.com/dronesight/dronesight-backend/internal/middleware"
	"github.com/dronesight/dronesight-backend/internal/screens"
	"github.com/dronesight/dronesight-backend/internal/services"
)

const (
	screenReadLimit  = 64 * 1024
	screenPongWait   = 90 * time.Second
	screenPingPeriod = 30 * time.Second
	screenWriteWait  = 10 * time.Second
)

var screenUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are checked by the CORS layer before the upgrade.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ScreenClientMessage is a message sent by the client over the screen socket.
type ScreenClientMessage struct {
	Type    string          `json:"type"` // "intent" or "ping"
	Name    string          `json:"name,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ScreenHandler serves one screen session per WebSocket connection. Each
// session has its own navigator, back stack and auth client.
type ScreenHandler struct {
	deps screens.Deps
	auth services.Authenticator
	log  *logrus.Entry
}

func NewScreenHandler(deps screens.Deps, auth services.Authenticator) *ScreenHandler {
	return &ScreenHandler{deps: deps, auth: auth, log: logger.For("handlers.screens")}
}

// Connect upgrades the request and runs the session until either side closes.
// A session token, from the Authorization header or the token query parameter,
// restores a signed-in session.
func (h *ScreenHandler) Connect(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}

	client := services.NewAuthClient(h.auth)
	if token != "" {
		if err := client.Restore(r.Context(), token); err != nil {
			http.Error(w, "invalid session token", http.StatusUnauthorized)
			return
		}
	}

	conn, err := screenUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	host := screens.NewHost(h.deps, client)
	defer host.Close()

	replies := make(chan screens.Frame, 8)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(conn, host, replies)
		cancel()
	}()

	if err := host.Start(ctx); err != nil {
		return
	}
	h.readLoop(ctx, conn, host, replies)

	host.Close()
	<-writerDone
}

// writeLoop is the only writer on conn.
func (h *ScreenHandler) writeLoop(conn *websocket.Conn, host *screens.Host, replies <-chan screens.Frame) {
	ticker := time.NewTicker(screenPingPeriod)
	defer ticker.Stop()

	write := func(f screens.Frame) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(screenWriteWait))
		return conn.WriteJSON(f) == nil
	}
	for {
		select {
		case <-host.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(screenWriteWait))
			return
		case f := <-host.Frames():
			if !write(f) {
				return
			}
		case f := <-replies:
			if !write(f) {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(screenWriteWait)); err != nil {
				return
			}
		}
	}
}

func (h *ScreenHandler) readLoop(ctx context.Context, conn *websocket.Conn, host *screens.Host, replies chan<- screens.Frame) {
	conn.SetReadLimit(screenReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(screenPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(screenPongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.WithError(err).Debug("screen socket closed")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(screenPongWait))

		var msg ScreenClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.reply(replies, screens.Frame{Type: screens.FrameError, Error: "invalid message"})
			continue
		}
		switch msg.Type {
		case "ping":
		case "intent":
			// Failures reach the client as error frames from the host.
			err := host.Dispatch(ctx, screens.Intent{Name: msg.Name, Payload: msg.Payload})
			if errors.Is(err, screens.ErrHostClosed) {
				return
			}
		default:
			h.reply(replies, screens.Frame{Type: screens.FrameError, Error: "unknown message type: " + msg.Type})
		}
	}
}

func (h *ScreenHandler) reply(replies chan<- screens.Frame, f screens.Frame) {
	select {
	case replies <- f:
	default:
		h.log.Warn("dropping reply frame")
	}
}
