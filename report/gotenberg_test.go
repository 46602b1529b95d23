package report

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pdfBytes(n int) []byte {
	return []byte("%PDF-" + strings.Repeat("x", n))
}

func TestRenderHTMLPostsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forms/chromium/convert/html", r.URL.Path)
		file, header, err := r.FormFile("files")
		require.NoError(t, err)
		assert.Equal(t, "index.html", header.Filename)
		body, _ := io.ReadAll(file)
		assert.Equal(t, "<h1>hi</h1>", string(body))
		_, _ = w.Write(pdfBytes(2048))
	}))
	defer srv.Close()

	data, err := NewClient(srv.URL).RenderHTML(context.Background(), "<h1>hi</h1>")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF-"))
}

func TestRenderHTMLRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write(pdfBytes(2048))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).RenderHTML(context.Background(), "<p></p>")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRenderHTMLDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).RenderHTML(context.Background(), "<p></p>")
	require.ErrorIs(t, err, ErrInvalidResponse)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRenderHTMLTooSmall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("%PDF"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, WithRetries(1)).RenderHTML(context.Background(), "<p></p>")
	require.ErrorIs(t, err, ErrTooSmall)
}

func TestRenderHTMLTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, WithRetries(0), WithTimeout(20*time.Millisecond)).RenderHTML(context.Background(), "<p></p>")
	require.ErrorIs(t, err, ErrTimeout)
}

func TestNewClientEmptyURL(t *testing.T) {
	assert.Nil(t, NewClient("  "))
	var c *Client
	_, err := c.RenderHTML(context.Background(), "")
	assert.Error(t, err)
}

func TestPingHandler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	for name, tc := range map[string]struct {
		client *Client
		code   int
	}{
		"up":             {NewClient(srv.URL), http.StatusOK},
		"not configured": {nil, http.StatusServiceUnavailable},
		"unreachable":    {NewClient("http://127.0.0.1:1"), http.StatusServiceUnavailable},
	} {
		t.Run(name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Route("/pdf", NewHandler(tc.client, logger).MountRoutes)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pdf/ping", nil))
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}
