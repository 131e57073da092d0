package http

import (
	"errors"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/VytasKer/Fintegrate/internal/model"
	"github.com/VytasKer/Fintegrate/internal/service/outbox"
)

type confirmDeliveryReq struct {
	EventID       string  `json:"event_id"`
	Status        string  `json:"status"`
	ReceivedAt    string  `json:"received_at"`
	FailureReason *string `json:"failure_reason"`
	ConsumerName  string  `json:"consumer_name"`
}

func confirmDeliveryHandler(svc *outbox.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req confirmDeliveryReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		if req.EventID == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "event_id is required"})
		}

		status := model.ProcessingStatus(req.Status)
		if !status.Valid() {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "status must be received, processed or failed"})
		}

		var receivedAt time.Time
		if req.ReceivedAt != "" {
			t, err := time.Parse(time.RFC3339, req.ReceivedAt)
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "received_at must be RFC3339"})
			}
			receivedAt = t
		}

		err := svc.Confirm(c.Request().Context(), outbox.ConfirmParams{
			EventID:       req.EventID,
			Status:        status,
			ReceivedAt:    receivedAt,
			FailureReason: req.FailureReason,
			ConsumerName:  req.ConsumerName,
		})
		if errors.Is(err, outbox.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "event not found"})
		}
		if errors.Is(err, outbox.ErrInvalidStatus) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid status"})
		}
		if err != nil {
			log.Errorf("confirm delivery failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusOK, map[string]any{"event_id": req.EventID, "confirmed": true})
	}
}
