package telemetry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

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

func (e *recordingExporter) bodies() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.records))
	for _, r := range e.records {
		out = append(out, r.Body().AsString())
	}
	return out
}

func newRecordingProvider() (*LoggerProvider, *recordingExporter) {
	exp := &recordingExporter{}
	sdk := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exp)))
	return &LoggerProvider{provider: sdk, logger: zap.NewNop()}, exp
}

func TestNewLoggerProvider_Disabled(t *testing.T) {
	ctx := context.Background()

	lp, err := NewLoggerProvider(ctx, LogsConfig{Enabled: false, ServiceName: "orgmap"}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, lp.IsEnabled())
	assert.NoError(t, lp.ForceFlush(ctx))
	assert.NoError(t, lp.Shutdown(ctx))
	assert.NoError(t, lp.Shutdown(ctx))
}

func TestNewZapOTELCore_Disabled(t *testing.T) {
	core := NewZapOTELCore(nil, "orgmap", zapcore.InfoLevel)
	assert.False(t, core.Enabled(zapcore.ErrorLevel))

	lp := &LoggerProvider{logger: zap.NewNop()}
	assert.False(t, NewZapOTELCore(lp, "orgmap", zapcore.InfoLevel).Enabled(zapcore.ErrorLevel))
}

func TestBridgeLogger(t *testing.T) {
	t.Run("disabled provider returns base logger", func(t *testing.T) {
		base := zap.NewNop()
		assert.Same(t, base, BridgeLogger(base, nil, "orgmap", zapcore.InfoLevel))
	})

	t.Run("tees entries above the level", func(t *testing.T) {
		lp, exp := newRecordingProvider()
		core, logs := observer.New(zapcore.DebugLevel)

		log := BridgeLogger(zap.New(core), lp, "orgmap", zapcore.WarnLevel)
		log.Info("upload accepted", zap.String("entity", "grades"))
		log.Warn("rows dropped", zap.Int("dropped", 3))
		log.Error("import failed")

		assert.Equal(t, 3, logs.Len(), "base core still receives everything")
		assert.Equal(t, []string{"rows dropped", "import failed"}, exp.bodies())
	})

	t.Run("fields attached with With are exported", func(t *testing.T) {
		lp, exp := newRecordingProvider()

		log := BridgeLogger(zap.NewNop(), lp, "orgmap", zapcore.InfoLevel).With(zap.String("upload_id", "u-1"))
		log.Info("upload completed")

		exp.mu.Lock()
		defer exp.mu.Unlock()
		require.Len(t, exp.records, 1)
		assert.Equal(t, otellog.SeverityInfo, exp.records[0].Severity())

		var found bool
		exp.records[0].WalkAttributes(func(kv otellog.KeyValue) bool {
			if kv.Key == "upload_id" {
				found = kv.Value.AsString() == "u-1"
				return false
			}
			return true
		})
		assert.True(t, found)
	})
}

func TestLevelFilterCore(t *testing.T) {
	inner, _ := observer.New(zapcore.DebugLevel)
	core := &levelFilterCore{Core: inner, minLevel: zapcore.WarnLevel}

	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.WarnLevel))

	withCore, ok := core.With([]zapcore.Field{zap.String("k", "v")}).(*levelFilterCore)
	require.True(t, ok)
	assert.Equal(t, zapcore.WarnLevel, withCore.minLevel)
}
