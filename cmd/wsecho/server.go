package main

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vitalvas/wsframe/websocket"
)

// echoServer upgrades HTTP connections to WebSocket and echoes back every
// text or binary message it receives, tagging each connection with a
// generated id for logging.
type echoServer struct {
	upgrader   websocket.Upgrader
	log        *slog.Logger
	maxMsgSize int64
}

func newEchoServer(cfg Config, log *slog.Logger) *echoServer {
	return &echoServer{
		upgrader: websocket.Upgrader{
			ReadBufferSize:    4096,
			WriteBufferSize:   4096,
			EnableCompression: cfg.EnableCompression,
		},
		log:        log,
		maxMsgSize: cfg.MaxMessageSize,
	}
}

func (s *echoServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	connID := uuid.NewString()
	log := s.log.With("conn_id", connID, "remote_addr", r.RemoteAddr)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(s.maxMsgSize)

	log.Info("connection established")
	defer log.Info("connection closed")

	conn.SetCloseHandler(func(code int, text string) error {
		log.Info("received close frame", "code", code, "text", text)
		return nil
	})
	conn.SetPingHandler(func(data string) error {
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second))
	})

	for {
		msg, err := conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				log.Info("peer closed connection", "code", closeErr.Code)
			} else {
				log.Warn("read failed", "error", err)
			}
			return
		}

		switch msg.Type {
		case websocket.TextMessage, websocket.BinaryMessage:
			if err := conn.WriteMessage(msg.Type, msg.Payload()); err != nil {
				log.Warn("write failed", "error", err)
				return
			}
		}
	}
}
