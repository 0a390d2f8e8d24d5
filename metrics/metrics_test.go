package metrics

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afg1/bqeval/core"
)

func TestRecorder_ObserveSearch(t *testing.T) {
	r := NewRecorder()
	params := core.SearchParams{Limit: 10, Oversampling: 2, Rescore: true}

	r.ObserveSearch(params, 3*time.Millisecond, nil)
	r.ObserveSearch(params, 5*time.Millisecond, nil)
	r.ObserveSearch(params, 0, errors.New("unavailable"))

	assert.Equal(t, 1, testutil.CollectAndCount(r.searchLatency))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.searchErrors.WithLabelValues("2", "true", "10")))
}

func TestRecorder_Upload(t *testing.T) {
	r := NewRecorder()
	r.AddUploaded(128)
	r.AddUploaded(72)
	r.AddUploaded(0)
	r.IncFailedBatch()
	r.IncRetry()
	r.IncRetry()

	assert.Equal(t, 200.0, testutil.ToFloat64(r.uploadedPoints))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.failedBatches))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.uploadRetries))
}

func TestRecorder_SetAccuracy(t *testing.T) {
	r := NewRecorder()
	r.SetAccuracy(core.SearchParams{Limit: 1, Oversampling: 1.5}, 0.87)
	assert.Equal(t, 0.87, testutil.ToFloat64(r.cellAccuracy.WithLabelValues("1.5", "false", "1")))
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveSearch(core.SearchParams{Limit: 1}, time.Millisecond, nil)
		r.SetAccuracy(core.SearchParams{Limit: 1}, 1)
		r.AddUploaded(10)
		r.IncFailedBatch()
		r.IncRetry()
	})
	assert.Nil(t, r.Registry())
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.AddUploaded(3)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bqeval_uploaded_points_total 3")
}

func TestServe(t *testing.T) {
	r := NewRecorder()
	r.AddUploaded(5)

	// Reserve a free port, then hand it to Serve.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, addr, r, nil) }()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return false
		}
		body = string(data)
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)
	assert.True(t, strings.Contains(body, "bqeval_uploaded_points_total 5"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServe_BadAddress(t *testing.T) {
	err := Serve(context.Background(), "not-an-address", NewRecorder(), nil)
	assert.Error(t, err)
}

func TestServe_NilRecorder(t *testing.T) {
	err := Serve(context.Background(), "127.0.0.1:0", nil, nil)
	assert.Error(t, err)
}
