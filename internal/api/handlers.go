package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"analyticsScope/internal/dashboard"
)

type handler struct {
	state        *dashboard.State
	logger       *zap.Logger
	pingInterval time.Duration
	upgrader     websocket.Upgrader
}

type errorResponse struct {
	Error  string           `json:"error"`
	Status dashboard.Status `json:"status"`
}

func (h *handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.GET("/affiliates", h.Affiliates)
	g.GET("/affiliates/:name", h.Affiliate)
	g.GET("/solvers", h.Solvers)
	g.GET("/summary", h.Summary)
	g.GET("/decimals", h.Decimals)
	g.GET("/status", h.Status)
	e.GET("/ws", h.Stream)
}

// snapshot returns the latest snapshot or writes 503 while none is ready.
func (h *handler) snapshot(c echo.Context) (*dashboard.Snapshot, error) {
	snap := h.state.Snapshot()
	if snap == nil {
		status := h.state.Status()
		msg := "snapshot not ready"
		if status.LastError != "" {
			msg = status.LastError
		}
		return nil, c.JSON(http.StatusServiceUnavailable, errorResponse{Error: msg, Status: status})
	}
	return snap, nil
}

func (h *handler) Affiliates(c echo.Context) error {
	snap, err := h.snapshot(c)
	if snap == nil {
		return err
	}
	return c.JSON(http.StatusOK, snap.Affiliates)
}

func (h *handler) Affiliate(c echo.Context) error {
	snap, err := h.snapshot(c)
	if snap == nil {
		return err
	}
	name := c.Param("name")
	for _, a := range snap.Affiliates {
		if strings.EqualFold(a.Index.Name, name) {
			return c.JSON(http.StatusOK, a)
		}
	}
	return echo.NewHTTPError(http.StatusNotFound, "affiliate not found")
}

func (h *handler) Solvers(c echo.Context) error {
	snap, err := h.snapshot(c)
	if snap == nil {
		return err
	}
	return c.JSON(http.StatusOK, snap.Solvers)
}

func (h *handler) Summary(c echo.Context) error {
	snap, err := h.snapshot(c)
	if snap == nil {
		return err
	}
	return c.JSON(http.StatusOK, snap.Summary)
}

func (h *handler) Decimals(c echo.Context) error {
	snap, err := h.snapshot(c)
	if snap == nil {
		return err
	}
	return c.JSON(http.StatusOK, snap.Decimals)
}

func (h *handler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, h.state.Status())
}
