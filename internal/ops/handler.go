// Package ops implements the Echo routes exposed by cmd/dukad: health,
// the bundled instrument catalog, and export-run submission.
package ops

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"Duka/internal/catalog"
	"Duka/internal/export"
	pkgch "Duka/pkg/clickhouse"
	xhttp "Duka/pkg/http"
	applogger "Duka/pkg/logger"
)

// Enqueuer submits an export.Request for asynchronous processing. Both
// pkg/queue.RedisQueue and pkg/queue.QueueService satisfy it.
type Enqueuer interface {
	PublishMessage(ctx context.Context, msgType string, payload interface{}) error
}

// Handler registers the ops daemon's HTTP surface.
type Handler struct {
	logger   *applogger.Logger
	queue    Enqueuer
	chClient *pkgch.Client
}

func New(logger *applogger.Logger, queue Enqueuer, chClient *pkgch.Client) *Handler {
	return &Handler{logger: logger, queue: queue, chClient: chClient}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.health)
	e.GET("/readyz", h.ready)
	e.GET("/instruments", h.instruments)
	e.GET("/debug/logs", h.debugLogs)
	e.POST("/export", h.submitExport)
}

func (h *Handler) health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

// ready additionally probes ClickHouse when a client is wired in, so a
// caller can distinguish "process is up" from "storage is up" by the
// response body's status field (503 when degraded); the HTTP status code
// is 200 either way.
func (h *Handler) ready(c echo.Context) error {
	if h.chClient != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := h.chClient.Health(ctx); err != nil {
			return xhttp.DataResponse(c, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "reason": err.Error()})
		}
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ready"})
}

func (h *Handler) instruments(c echo.Context) error {
	return xhttp.SuccessResponse(c, catalog.Default.Symbols())
}

// debugLogs surfaces the error entries the logger's collector has
// aggregated since its last flush (warnings are not collected), so an
// operator can inspect what's failing without a log aggregator. ?limit=
// caps how many entries come back; the order of entries is not defined.
func (h *Handler) debugLogs(c echo.Context) error {
	collector := h.logger.Collector()
	if collector == nil {
		return xhttp.SuccessResponse(c, []interface{}{})
	}
	entries := collector.Snapshot()
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), len(entries))
	if limit >= 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return xhttp.SuccessResponse(c, entries)
}

// exportRequest is the JSON body for POST /export.
type exportRequest struct {
	Instrument  string    `json:"instrument" validate:"required"`
	Granularity string    `json:"granularity" validate:"required,oneof=ticks minute hour day" default:"hour"`
	From        time.Time `json:"from" validate:"required"`
	To          time.Time `json:"to" validate:"required,gtfield=From"`
	Side        string    `json:"side" validate:"omitempty,oneof=bid ask mid" default:"bid"`
}

// submitExport validates the request body and enqueues it as an
// export.Job run; the actual fetch/decode/write happens off the request
// goroutine via the queue worker.
func (h *Handler) submitExport(c echo.Context) error {
	var req exportRequest
	if verrs := xhttp.ReadAndValidateRequest(c, &req); verrs != nil {
		return xhttp.BadRequestResponse(c, verrs)
	}

	payload := export.Request{
		Instrument:  req.Instrument,
		Granularity: req.Granularity,
		From:        req.From,
		To:          req.To,
		Side:        req.Side,
	}
	if err := h.queue.PublishMessage(c.Request().Context(), "export.run", payload); err != nil {
		appErr := xhttp.NewAppError("ERR_QUEUE_UNAVAILABLE", "", err.Error(), http.StatusServiceUnavailable).WithError(err)
		return xhttp.AppErrorResponse(c, appErr)
	}
	jobID := fmt.Sprintf("%s-%d", req.Instrument, time.Now().UnixNano())
	return xhttp.DataResponse(c, http.StatusAccepted, map[string]string{"job_id": jobID, "status": "queued"})
}
