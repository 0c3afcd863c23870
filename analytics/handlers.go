package analytics

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Giriprasad013-git/modern-blog/database"
)

// CollectPerMinute is the per-IP limit on the collect endpoint.
const CollectPerMinute = 60

// Handler serves the event collection endpoint.
type Handler struct {
	recorder *Recorder
	limiter  *Limiter
	deviceID func(echo.Context) string
	logger   *zap.Logger
}

// NewHandler returns a Handler. deviceID resolves the caller's device id.
func NewHandler(recorder *Recorder, limiter *Limiter, deviceID func(echo.Context) string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{recorder: recorder, limiter: limiter, deviceID: deviceID, logger: logger}
}

// CollectRequest is the body of POST /api/events.
type CollectRequest struct {
	EventType string          `json:"event_type"`
	EventData json.RawMessage `json:"event_data"`
	PageURL   string          `json:"page_url"`
}

// Collect records one event. Bots and Do Not Track requests are accepted
// and ignored.
func (h *Handler) Collect(c echo.Context) error {
	if !h.limiter.Allow(c.RealIP()) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests")
	}
	req := c.Request()
	if req.Header.Get("DNT") == "1" || IsBot(req.UserAgent()) {
		return c.NoContent(http.StatusNoContent)
	}

	var body CollectRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request")
	}
	data := body.EventData
	if string(data) == "null" {
		data = nil
	}
	pageURL := body.PageURL
	if pageURL == "" {
		pageURL = req.Referer()
	}

	recorded, err := h.recorder.Record(req.Context(), Event{
		DeviceID: h.deviceID(c),
		Type:     body.EventType,
		Data:     database.RawJSON(data),
		PageURL:  pageURL,
	})
	var verr *ValidationError
	if errors.As(err, &verr) {
		return echo.NewHTTPError(http.StatusBadRequest, verr.Error())
	}
	if err != nil {
		h.logger.Warn("record event", zap.Error(err))
		return err
	}
	return c.JSON(http.StatusAccepted, map[string]bool{"recorded": recorded})
}
