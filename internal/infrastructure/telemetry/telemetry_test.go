package telemetry_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/erp/prestashop-connector/internal/infrastructure/telemetry"
)

func TestNewTracerProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{ServiceName: "prestashop-connector"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Provider().Tracer("test"))
	assert.NoError(t, tp.Shutdown(ctx))
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.Config{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	metrics, err := telemetry.NewJobMetrics(mp.Meter("test"))
	require.NoError(t, err)
	metrics.RecordJob(ctx, "prestashop.res.partner", "import_record", "done", time.Second)
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestJobMetrics_RecordJob(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	metrics, err := telemetry.NewJobMetrics(provider.Meter("test"))
	require.NoError(t, err)
	metrics.RecordJob(ctx, "prestashop.res.partner", "import_record", "done", 2*time.Second)
	metrics.RecordJob(ctx, "prestashop.res.partner", "import_record", "done", time.Second)
	metrics.RecordJob(ctx, "prestashop.product.template", "import_record", "failed", time.Second)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	var runs metricdata.Sum[int64]
	for _, m := range rm.ScopeMetrics[0].Metrics {
		if m.Name == "connector.jobs.runs" {
			runs = m.Data.(metricdata.Sum[int64])
		}
	}
	require.Len(t, runs.DataPoints, 2)

	counts := map[string]int64{}
	for _, dp := range runs.DataPoints {
		status, _ := dp.Attributes.Value(attribute.Key("status"))
		counts[status.AsString()] += dp.Value
	}
	assert.Equal(t, map[string]int64{"done": 2, "failed": 1}, counts)
}

func TestRegisterDBTracing(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	cfg := telemetry.DefaultDBTracingConfig()
	require.NoError(t, telemetry.RegisterDBTracing(db, cfg, tp, zaptest.NewLogger(t)), "disabled is a no-op")

	cfg.Enabled = true
	cfg.DBSystem = "sqlite"
	require.NoError(t, telemetry.RegisterDBTracing(db, cfg, tp, zaptest.NewLogger(t)))

	var n int
	require.NoError(t, db.WithContext(context.Background()).Raw("SELECT 1").Scan(&n).Error)
	assert.Equal(t, 1, n)
	assert.NotEmpty(t, recorder.Ended())
}

type recordingExporter struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (e *recordingExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.records = append(e.records, r.Clone())
	}
	return nil
}

func (e *recordingExporter) Shutdown(context.Context) error   { return nil }
func (e *recordingExporter) ForceFlush(context.Context) error { return nil }

func TestNewLoggerProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.Config{Enabled: true}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, lp.IsEnabled(), "logs need their own switch")
	base := zaptest.NewLogger(t)
	assert.Same(t, base, lp.Bridge(base))
	assert.NoError(t, lp.Shutdown(ctx))
}

func TestNewZapCore(t *testing.T) {
	exporter := &recordingExporter{}
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exporter)))
	defer func() {
		_ = provider.Shutdown(context.Background())
	}()

	log := zap.New(telemetry.NewZapCore("prestashop-connector", provider, zapcore.WarnLevel))
	log.Info("skipped")
	log.With(zap.String("backend_id", "b1")).Warn("import postponed")

	exporter.mu.Lock()
	defer exporter.mu.Unlock()
	require.Len(t, exporter.records, 1)
	record := exporter.records[0]
	assert.Equal(t, "import postponed", record.Body().AsString())

	var backendID string
	record.WalkAttributes(func(kv otellog.KeyValue) bool {
		if kv.Key == "backend_id" {
			backendID = kv.Value.AsString()
		}
		return true
	})
	assert.Equal(t, "b1", backendID)
}
