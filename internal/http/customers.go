package http

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/VytasKer/Fintegrate/internal/http/middleware"
	"github.com/VytasKer/Fintegrate/internal/model"
	"github.com/VytasKer/Fintegrate/internal/service/customer"
)

type createCustomerReq struct {
	Name string `json:"name"`
}

type changeStatusReq struct {
	Status string `json:"status"` // "ACTIVE" | "INACTIVE"
}

func createCustomerHandler(svc *customer.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createCustomerReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "name is required"})
		}
		if utf8.RuneCountInString(req.Name) > 255 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "name too long"})
		}

		tenantID, ok := middleware.TenantFromCtx(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		cust, err := svc.Create(c.Request().Context(), tenantID, req.Name)
		if err != nil {
			log.Errorf("create customer failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusCreated, map[string]any{
			"customer_id": cust.ID,
			"status":      cust.Status.String(),
			"created_at":  cust.CreatedAt,
		})
	}
}

func getCustomerHandler(svc *customer.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, ok := middleware.TenantFromCtx(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		cust, err := svc.Get(c.Request().Context(), tenantID, c.Param("id"))
		if errors.Is(err, customer.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "customer not found"})
		}
		if err != nil {
			log.Errorf("get customer failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"customer_id": cust.ID,
			"name":        cust.Name,
			"status":      cust.Status.String(),
			"created_at":  cust.CreatedAt,
			"updated_at":  cust.UpdatedAt,
		})
	}
}

func deleteCustomerHandler(svc *customer.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, ok := middleware.TenantFromCtx(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		err := svc.Delete(c.Request().Context(), tenantID, c.Param("id"))
		if errors.Is(err, customer.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "customer not found"})
		}
		if err != nil {
			log.Errorf("delete customer failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusOK, map[string]string{"message": "customer deleted"})
	}
}

func changeCustomerStatusHandler(svc *customer.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req changeStatusReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		status, ok := model.ParseCustomerStatus(req.Status)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "status must be ACTIVE or INACTIVE"})
		}

		tenantID, ok := middleware.TenantFromCtx(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		cust, err := svc.ChangeStatus(c.Request().Context(), tenantID, c.Param("id"), status)
		if errors.Is(err, customer.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "customer not found"})
		}
		if errors.Is(err, customer.ErrStatusConflict) {
			return c.JSON(http.StatusConflict, map[string]string{"error": "customer already has status " + status.String()})
		}
		if err != nil {
			log.Errorf("change customer status failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"customer_id": cust.ID,
			"status":      cust.Status.String(),
		})
	}
}
