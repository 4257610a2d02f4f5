package common

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newIdem(t *testing.T) Idem {
	t.Helper()
	mr := miniredis.RunT(t)
	return Idem{
		R:   redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		TTL: time.Minute,
	}
}

func doRequest(h http.Handler, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIdemDuplicateKeyRejected(t *testing.T) {
	idem := newIdem(t)
	calls := 0
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	first := doRequest(h, "abc-123")
	second := doRequest(h, "abc-123")

	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusConflict, second.Code)
	require.Equal(t, 1, calls)
	require.JSONEq(t, `{"error":"duplicate request"}`, second.Body.String())
}

func TestIdemDistinctKeysPass(t *testing.T) {
	idem := newIdem(t)
	calls := 0
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	require.Equal(t, http.StatusOK, doRequest(h, "key-1").Code)
	require.Equal(t, http.StatusOK, doRequest(h, "key-2").Code)
	require.Equal(t, 2, calls)
}

func TestIdemMissingHeaderIsPassthrough(t *testing.T) {
	idem := newIdem(t)
	calls := 0
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	require.Equal(t, http.StatusOK, doRequest(h, "").Code)
	require.Equal(t, http.StatusOK, doRequest(h, "").Code)
	require.Equal(t, 2, calls)
}
