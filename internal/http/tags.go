package http

import (
	"errors"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/VytasKer/Fintegrate/internal/http/middleware"
	"github.com/VytasKer/Fintegrate/internal/service/customer"
)

type setTagReq struct {
	Value string `json:"value"`
}

func setTagHandler(svc *customer.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req setTagReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		key := strings.TrimSpace(c.Param("key"))
		if key == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "tag key is required"})
		}

		tenantID, ok := middleware.TenantFromCtx(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		tag, err := svc.SetTag(c.Request().Context(), tenantID, c.Param("id"), key, req.Value)
		if errors.Is(err, customer.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "customer not found"})
		}
		if err != nil {
			log.Errorf("set tag failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusOK, map[string]string{
			"tag_key":   tag.TagKey,
			"tag_value": tag.TagValue,
		})
	}
}

func listTagsHandler(svc *customer.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, ok := middleware.TenantFromCtx(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		tags, err := svc.ListTags(c.Request().Context(), tenantID, c.Param("id"))
		if errors.Is(err, customer.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "customer not found"})
		}
		if err != nil {
			log.Errorf("list tags failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		out := make(map[string]string, len(tags))
		for _, t := range tags {
			out[t.TagKey] = t.TagValue
		}

		return c.JSON(http.StatusOK, map[string]any{"tags": out})
	}
}

func deleteTagHandler(svc *customer.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, ok := middleware.TenantFromCtx(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		err := svc.DeleteTag(c.Request().Context(), tenantID, c.Param("id"), c.Param("key"))
		if errors.Is(err, customer.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
		}
		if err != nil {
			log.Errorf("delete tag failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusOK, map[string]string{"message": "tag deleted"})
	}
}
