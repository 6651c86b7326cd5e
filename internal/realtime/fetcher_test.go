package realtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
			_, _ = w.Write([]byte("payload"))
		case "/slow":
			time.Sleep(200 * time.Millisecond)
		default:
			http.Error(w, "nope", http.StatusBadGateway)
		}
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(50*time.Millisecond, map[string]string{"X-Api-Key": "secret"}, nil)

	t.Run("Success", func(t *testing.T) {
		b, err := fetcher.Fetch(context.Background(), server.URL+"/ok")
		require.NoError(t, err)
		assert.Equal(t, "payload", string(b))
	})

	t.Run("Non2xxStatus", func(t *testing.T) {
		_, err := fetcher.Fetch(context.Background(), server.URL+"/broken")
		var netErr *NetworkError
		require.True(t, errors.As(err, &netErr))
		assert.Equal(t, http.StatusBadGateway, netErr.StatusCode)
		assert.Contains(t, netErr.Error(), "status 502")
	})

	t.Run("Timeout", func(t *testing.T) {
		_, err := fetcher.Fetch(context.Background(), server.URL+"/slow")
		var netErr *NetworkError
		require.True(t, errors.As(err, &netErr))
		assert.Zero(t, netErr.StatusCode)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := fetcher.Fetch(ctx, server.URL+"/ok")
		assert.ErrorIs(t, err, context.Canceled)
	})
}
