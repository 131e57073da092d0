package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VytasKer/Fintegrate/internal/model"
)

func TestHTTPConfirmerPostsReceipt(t *testing.T) {
	var got confirmRequest
	var apiKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("X-API-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewHTTPConfirmer(srv.URL, "secret", "customer_notifications", time.Second)
	reason := "handler failed"
	err := c.Confirm(context.Background(), "E1", model.ProcessingFailed, &reason)
	require.NoError(t, err)

	assert.Equal(t, "secret", apiKey)
	assert.Equal(t, "E1", got.EventID)
	assert.Equal(t, "failed", got.Status)
	require.NotNil(t, got.FailureReason)
	assert.Equal(t, "handler failed", *got.FailureReason)
	assert.Equal(t, "customer_notifications", got.ConsumerName)

	_, perr := time.Parse(time.RFC3339, got.ReceivedAt)
	assert.NoError(t, perr)
}

func TestHTTPConfirmerRejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewHTTPConfirmer(srv.URL, "", "n", time.Second)
	err := c.Confirm(context.Background(), "E1", model.ProcessingProcessed, nil)
	assert.Error(t, err)
}

func TestPermanentErrorUnwraps(t *testing.T) {
	base := errors.New("missing customer_id")
	err := Permanent(fmt.Errorf("validate: %w", base))

	assert.True(t, isPermanent(err))
	assert.ErrorIs(t, err, base)
	assert.False(t, isPermanent(base))
}
