package cmd

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aetherbrowser/aether/internal/filtering"
	"github.com/aetherbrowser/aether/internal/interceptor"
	"github.com/aetherbrowser/aether/internal/metrics"
)

func TestControlMux_BypassAndMetrics(t *testing.T) {
	f, err := filtering.NewFromRules(context.Background(), []filtering.Rule{"ads.example.com"})
	require.NoError(t, err)

	recorder := metrics.NewRecorder()
	bypass := interceptor.NewBypassRegistry()
	icpt, err := interceptor.New(context.Background(), f, interceptor.Config{Bypass: bypass, Metrics: recorder})
	require.NoError(t, err)
	icpt.OnBlock(func(ev interceptor.BlockEvent) {
		recorder.ObserveBlock(ev.Method)
	})

	srv := httptest.NewServer(controlMux(recorder, bypass))
	defer srv.Close()

	resp, err := http.PostForm(srv.URL+"/bypass", url.Values{"url": {"https://ads.example.com/x"}})
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	assert.True(t, icpt.Decide(http.MethodGet, "https://ads.example.com/x").Bypassed)
	assert.True(t, icpt.Decide(http.MethodGet, "https://ads.example.com/x").Blocked)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)

	out := string(body)
	assert.Contains(t, out, "aether_filter_requests_bypassed_total 1")
	assert.Contains(t, out, `aether_filter_blocked_by_method_total{method="GET"} 1`)
	assert.Contains(t, out, "aether_filter_requests_blocked_total 1")
}
