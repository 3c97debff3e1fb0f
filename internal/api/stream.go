package api

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"analyticsScope/internal/dashboard"
)

const writeWait = 10 * time.Second

// Stream pushes every published snapshot to a websocket client, starting with the current one.
func (h *handler) Stream(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader already replied
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return nil
	}
	defer conn.Close()

	updates, cancel := h.state.Subscribe()
	defer cancel()

	// read pump: only used to notice the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if snap := h.state.Snapshot(); snap != nil {
		if err := writeSnapshot(conn, snap); err != nil {
			return nil
		}
	}

	ping := time.NewTicker(h.pingInterval)
	defer ping.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-closed:
			return nil
		case snap := <-updates:
			if err := writeSnapshot(conn, snap); err != nil {
				h.logger.Debug("websocket write failed", zap.Error(err))
				return nil
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return nil
			}
		}
	}
}

func writeSnapshot(conn *websocket.Conn, snap *dashboard.Snapshot) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(snap)
}
