package nse

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insider-radar/internal/api"
)

var fixedNow = time.Date(2025, 3, 15, 14, 30, 0, 0, time.UTC)

func TestWindow(t *testing.T) {
	from, to, err := Window("3M", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "15-12-2024", from.Format(dateLayout))
	assert.Equal(t, "15-03-2025", to.Format(dateLayout))

	from, _, err = Window("1w", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "08-03-2025", from.Format(dateLayout))

	for _, bad := range []string{"", "M", "0M", "3Q", "xM"} {
		_, _, err := Window(bad, fixedNow)
		assert.Error(t, err, "period %q", bad)
	}
}

func TestOpen_WarmsSessionAndDownloads(t *testing.T) {
	var warmed atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			warmed.Store(true)
			http.SetCookie(w, &http.Cookie{Name: "nsit", Value: "session"})
			w.WriteHeader(http.StatusOK)
		case "/api/corporates-pit":
			if _, err := r.Cookie("nsit"); err != nil {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			assert.Equal(t, "equities", r.URL.Query().Get("index"))
			assert.Equal(t, "15-12-2024", r.URL.Query().Get("from_date"))
			assert.Equal(t, "true", r.URL.Query().Get("csv"))
			_, _ = w.Write([]byte("SYMBOL,CATEGORY OF PERSON\nABC,Promoters\n"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "/api/corporates-pit", "3M", 5*time.Second, WithClock(func() time.Time { return fixedNow }))
	rc, name, err := c.Open(context.Background())
	require.NoError(t, err)
	defer rc.Close()

	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.True(t, warmed.Load())
	assert.Contains(t, string(body), "ABC,Promoters")
	assert.Contains(t, name, "15-12-2024 to 15-03-2025")
}

func TestOpen_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			return
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("SYMBOL\nABC\n"))
	}))
	defer srv.Close()

	retry := &api.RetryConfig{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: time.Millisecond}
	c := NewClient(srv.URL, "/pit", "1M", 5*time.Second, WithRetry(retry))
	rc, _, err := c.Open(context.Background())
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, int32(3), calls.Load())
}

func TestOpen_NotFoundIsFinal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			return
		}
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	retry := &api.RetryConfig{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: time.Millisecond}
	c := NewClient(srv.URL, "/pit", "1M", 5*time.Second, WithRetry(retry))
	_, _, err := c.Open(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpen_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	c := NewClient(srv.URL, "/pit", "1M", 5*time.Second)
	_, _, err := c.Open(context.Background())
	assert.Error(t, err)
}
