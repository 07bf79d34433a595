package fetch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jgivc/emojifetch/internal/common"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			w.Write([]byte("image"))
		case "/slow.png":
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte("late"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	log := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	c := NewHTTPClient(50*time.Millisecond, log)

	t.Run("success", func(t *testing.T) {
		body, err := c.Open(context.Background(), srv.URL+"/ok.png")
		require.NoError(t, err)
		defer body.Close()

		content, err := io.ReadAll(body)
		require.NoError(t, err)
		require.Equal(t, "image", string(content))
	})

	t.Run("not found", func(t *testing.T) {
		_, err := c.Open(context.Background(), srv.URL+"/missing.png")
		require.ErrorIs(t, err, common.ErrUnexpectedStatus)
		require.Contains(t, err.Error(), "404")
	})

	t.Run("timeout", func(t *testing.T) {
		_, err := c.Open(context.Background(), srv.URL+"/slow.png")
		require.Error(t, err)
		require.NotErrorIs(t, err, common.ErrUnexpectedStatus)
	})

	t.Run("bad url", func(t *testing.T) {
		_, err := c.Open(context.Background(), "://nope")
		require.Error(t, err)
	})
}
