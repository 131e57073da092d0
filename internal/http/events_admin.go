package http

import (
	"net/http"
	"time"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/VytasKer/Fintegrate/internal/service/outbox"
)

type sweepReq struct {
	WindowDays  int      `json:"window_days"`
	MaxTryCount int      `json:"max_try_count"`
	EventTypes  []string `json:"event_types"`
}

func resendEventsHandler(svc *outbox.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req sweepReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		sum, err := svc.Resend(c.Request().Context(), outbox.SweepParams{
			WindowDays:  req.WindowDays,
			MaxTryCount: req.MaxTryCount,
			EventTypes:  req.EventTypes,
		})
		if err != nil {
			log.Errorf("resend sweep failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "sweep failed"})
		}

		return c.JSON(http.StatusOK, sum)
	}
}

func redeliverEventsHandler(svc *outbox.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req sweepReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		sum, err := svc.Redeliver(c.Request().Context(), outbox.SweepParams{
			WindowDays:  req.WindowDays,
			MaxTryCount: req.MaxTryCount,
			EventTypes:  req.EventTypes,
		})
		if err != nil {
			log.Errorf("redeliver sweep failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "sweep failed"})
		}

		return c.JSON(http.StatusOK, sum)
	}
}

func eventsHealthHandler(svc *outbox.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		h, err := svc.Health(c.Request().Context())
		if err != nil {
			log.Errorf("events health failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		var oldestAge *int64
		if h.OldestPending != nil {
			secs := int64(time.Since(*h.OldestPending).Seconds())
			if secs < 0 {
				secs = 0
			}
			oldestAge = &secs
		}

		return c.JSON(http.StatusOK, map[string]any{
			"pending_count":              h.PendingCount,
			"failed_count":               h.FailedCount,
			"oldest_pending_age_seconds": oldestAge,
		})
	}
}
