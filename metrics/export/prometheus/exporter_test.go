package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/ledger"
	"github.com/MrEthical07/ledger/internal/fakeremote"
	"github.com/MrEthical07/ledger/session"
)

type fakeSource struct {
	snapshot ledger.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() ledger.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                    { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: ledger.MetricsSnapshot{
			Counters:   map[ledger.MetricID]uint64{},
			Histograms: map[ledger.MetricID][]uint64{},
		},
	})
	require.Empty(t, exp.Render())
}

func TestRenderIncludesCounterAndHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: ledger.MetricsSnapshot{
			Counters: map[ledger.MetricID]uint64{
				ledger.MetricLoginSuccess: 7,
			},
			Histograms: map[ledger.MetricID][]uint64{
				ledger.MetricRequestLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	require.Contains(t, out, `ledger_credential_exchange_total{operation="login",result="success"} 7`)
	require.Contains(t, out, `ledger_credential_exchange_total{operation="signup",result="failure"} 0`)
	require.Contains(t, out, "ledger_logout_total 0")
	require.Contains(t, out, `ledger_request_latency_seconds_bucket{le="0.025"} 1`)
	require.Contains(t, out, `ledger_request_latency_seconds_bucket{le="+Inf"} 36`)
	require.Contains(t, out, "ledger_request_latency_seconds_count 36")
	require.Contains(t, out, "ledger_audit_dropped_total 2")
}

func TestRenderOneHeaderPerFamily(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: ledger.MetricsSnapshot{
			Counters: map[ledger.MetricID]uint64{
				ledger.MetricRequestTimeout:     2,
				ledger.MetricRequestServerError: 5,
			},
			Histograms: map[ledger.MetricID][]uint64{},
		},
	})

	out := exp.Render()
	require.Equal(t, 1, strings.Count(out, "# TYPE ledger_request_failures_total counter\n"))
	require.Equal(t, 1, strings.Count(out, "# TYPE ledger_boot_total counter\n"))
	require.Contains(t, out, `ledger_request_failures_total{kind="timeout"} 2`)
	require.Contains(t, out, `ledger_request_failures_total{kind="server_status"} 5`)
	require.Contains(t, out, `ledger_request_failures_total{kind="unreachable"} 0`)
	require.Contains(t, out, "# TYPE ledger_request_latency_seconds histogram\n")
}

func TestEscapeLabelValue(t *testing.T) {
	require.Equal(t, `a\"b\\c\nd`, escapeLabelValue("a\"b\\c\nd"))
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: ledger.MetricsSnapshot{
			Counters:   map[ledger.MetricID]uint64{ledger.MetricLoginSuccess: 1},
			Histograms: map[ledger.MetricID][]uint64{},
		},
	})

	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
}

func TestExporterReadsClient(t *testing.T) {
	remote, err := fakeremote.New(fakeremote.Config{})
	require.NoError(t, err)
	ts := httptest.NewServer(remote)
	defer ts.Close()

	c, err := ledger.New().
		WithBaseURL(ts.URL).
		WithStore(session.NewMemoryStore()).
		WithMetricsEnabled(true).
		Build()
	require.NoError(t, err)
	defer c.Close()
	c.Start(context.Background())

	_, err = c.Login(context.Background(), ledger.Credentials{Email: "nobody@gmail.com", Password: "wrong"})
	require.Error(t, err)

	out := NewPrometheusExporter(c).Render()
	require.Contains(t, out, `ledger_boot_total{outcome="no_token"} 1`)
	require.Contains(t, out, `ledger_credential_exchange_total{operation="login",result="failure"} 1`)
	require.True(t, strings.Contains(out, `ledger_request_failures_total{kind="client_status"} 1`), out)
}

func BenchmarkRender(b *testing.B) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: ledger.MetricsSnapshot{
			Counters: map[ledger.MetricID]uint64{
				ledger.MetricLoginSuccess:       1000,
				ledger.MetricLoginFailure:       40,
				ledger.MetricBootValidated:      800,
				ledger.MetricRequestServerError: 10,
				ledger.MetricLogout:             20,
			},
			Histograms: map[ledger.MetricID][]uint64{
				ledger.MetricRequestLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
