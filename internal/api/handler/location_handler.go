package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fieldworks/dispatch-system/internal/core/ports"
)

// SampleQueue is the enqueue side of the location ingest dispatcher.
type SampleQueue interface {
	Enqueue(sample ports.IngestSampleInput)
}

// LocationHandler accepts device position reports and hands them to the
// sharded ingest queue.
type LocationHandler struct {
	queue SampleQueue
}

func NewLocationHandler(queue SampleQueue) *LocationHandler {
	return &LocationHandler{queue: queue}
}

type ingestLocationRequest struct {
	TechnicianID   string     `json:"technician_id" validate:"required"`
	Latitude       float64    `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude      float64    `json:"longitude" validate:"gte=-180,lte=180"`
	AccuracyMeters *float64   `json:"accuracy_meters"`
	CapturedAt     *time.Time `json:"captured_at"`
}

// Ingest handles POST /v1/locations. Samples are queued and processed
// asynchronously; per-technician ordering is preserved by the queue's
// sharding.
//
// @Summary      Report a technician's position
// @Tags         locations
// @Accept       json
// @Produce      json
// @Param        body  body      ingestLocationRequest  true  "Position sample"
// @Success      202   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Router       /v1/locations [post]
func (h *LocationHandler) Ingest(c echo.Context) error {
	var req ingestLocationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sample := ports.IngestSampleInput{
		TechnicianID:   req.TechnicianID,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		AccuracyMeters: req.AccuracyMeters,
	}
	if req.CapturedAt != nil {
		sample.CapturedAt = *req.CapturedAt
	}
	h.queue.Enqueue(sample)

	return c.JSON(http.StatusAccepted, map[string]string{"status": "accepted"})
}
