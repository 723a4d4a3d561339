package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kozaktomas/facelens/internal/analyzer"
	"github.com/kozaktomas/facelens/internal/logging"
)

const (
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 5 * time.Second
	wsReadTimeout  = 2 * wsPingInterval
)

// wsMessage is the envelope of every message pushed to a socket client.
type wsMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin checks happen in the CORS middleware.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamWebSocket pushes the initial status and every published frame to a
// socket client. Incoming messages are ignored apart from keeping the read
// deadline alive; the stream ends when the client goes away.
func streamWebSocket(w http.ResponseWriter, r *http.Request, a *analyzer.Analyzer, initial any) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.WithRequestID(r.Context()).WithField("error", err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	frames, unsubscribe := subscribeFrames(a)
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(msg wsMessage) bool {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			logging.WithRequestID(r.Context()).WithField("error", err).Debug("websocket write failed")
			return false
		}
		return true
	}

	if !write(wsMessage{Type: "status", Data: initial}) {
		return
	}

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case frame := <-frames:
			if !write(wsMessage{Type: "frame", Data: newFrameEvent(frame)}) {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}
