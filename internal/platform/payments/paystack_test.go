package payments

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/esusu-circle-engine/internal/config"
	"github.com/esusu-circle-engine/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewClient(logger, &config.PaystackConfig{
		BaseURL:   baseURL,
		SecretKey: "sk_test_abc123",
		Timeout:   2 * time.Second,
	})
}

func TestClient_Verify(t *testing.T) {
	ctx := context.Background()

	t.Run("successful charge", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/transaction/verify/PSK-REF-1", r.URL.Path)
			assert.Equal(t, "Bearer sk_test_abc123", r.Header.Get("Authorization"))
			fmt.Fprint(w, `{"status":true,"message":"Verification successful","data":{"status":"success","reference":"PSK-REF-1","amount":100000}}`)
		}))
		defer server.Close()

		v, err := newTestClient(server.URL).Verify(ctx, "PSK-REF-1")
		require.NoError(t, err)
		assert.True(t, v.Succeeded())
		assert.Equal(t, int64(100_000), v.Amount)
		assert.Equal(t, "PSK-REF-1", v.Reference)
	})

	t.Run("failed charge is not an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status":true,"message":"Verification successful","data":{"status":"failed","reference":"PSK-REF-2","amount":100000}}`)
		}))
		defer server.Close()

		v, err := newTestClient(server.URL).Verify(ctx, "PSK-REF-2")
		require.NoError(t, err)
		assert.False(t, v.Succeeded())
	})

	t.Run("gateway error fails closed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Verify(ctx, "PSK-REF-3")
		var svcErr shared.ExternalServiceError
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, "paystack", svcErr.Service)
	})

	t.Run("unknown reference", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status":false,"message":"Transaction reference not found"}`)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Verify(ctx, "PSK-MISSING")
		var svcErr shared.ExternalServiceError
		require.ErrorAs(t, err, &svcErr)
		assert.Contains(t, err.Error(), "Transaction reference not found")
	})

	t.Run("unreachable gateway", func(t *testing.T) {
		_, err := newTestClient("http://127.0.0.1:1").Verify(ctx, "PSK-REF-4")
		var svcErr shared.ExternalServiceError
		require.ErrorAs(t, err, &svcErr)
	})

	t.Run("empty reference", func(t *testing.T) {
		_, err := newTestClient("http://example.invalid").Verify(ctx, "")
		var valErr shared.ValidationError
		require.ErrorAs(t, err, &valErr)
	})
}
