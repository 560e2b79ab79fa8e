package infra

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Websocket upgrades echo requests and keeps the connection alive with pings
type Websocket struct {
	upgrader     websocket.Upgrader
	WriteWait    time.Duration
	PongWait     time.Duration
	PingInterval time.Duration
}

// MessageHandler serve one inbound message, returning an error closes the connection
type MessageHandler func(c echo.Context, conn *websocket.Conn) error

// NewWebsocket .
func NewWebsocket() *Websocket {
	pongWait := 30 * time.Second
	return &Websocket{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			HandshakeTimeout: 3 * time.Second,
		},
		WriteWait:    10 * time.Second,
		PongWait:     pongWait,
		PingInterval: pongWait * 9 / 10,
	}
}

// WithHeartbeat wrap handler function with heartbeat probe, the echo handler returns once the peer goes away
func (ws *Websocket) WithHeartbeat(handler MessageHandler) echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, err := ws.upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			// upgrader already replied
			return nil
		}
		defer conn.Close()

		conn.SetReadDeadline(time.Now().Add(ws.PongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(ws.PongWait))
		})

		done := make(chan struct{})
		defer close(done)
		go ws.heartbeatRoutine(conn, done)

		for {
			if err := handler(c, conn); err != nil {
				return nil
			}
		}
	}
}

func (ws *Websocket) heartbeatRoutine(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(ws.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ws.WriteWait)); err != nil {
				return
			}
		}
	}
}
