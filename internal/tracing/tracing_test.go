package tracing

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

func TestNewProvider_DisabledIsNoop(t *testing.T) {
	p, err := NewProvider(Config{Enabled: false})
	require.NoError(t, err)
	require.False(t, p.Enabled())
	require.NotNil(t, p.Tracer(), "a noop tracer is still usable")

	_, span := p.Tracer().Start(context.Background(), "op")
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_RejectsUnknownExporter(t *testing.T) {
	_, err := NewProvider(Config{Enabled: true, Exporter: "jaeger"})
	require.Error(t, err)
}

func TestFileExporter_WritesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces", "out.jsonl")

	p, err := NewProvider(Config{
		Enabled:     true,
		Exporter:    "file",
		FilePath:    path,
		SampleRate:  1.0,
		ServiceName: "flowdash-test",
	})
	require.NoError(t, err)

	ctx, span := p.Tracer().Start(context.Background(), "api.request")
	span.SetAttributes(attribute.String("http.method", "GET"))
	span.SetStatus(codes.Error, "server returned 500")
	span.End()
	_ = ctx

	require.NoError(t, p.Shutdown(context.Background()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	var records []SpanRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec SpanRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec), "each line is one JSON object")
		records = append(records, rec)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, records, 1)
	require.Equal(t, "api.request", records[0].Name)
	require.Equal(t, "ERROR", records[0].Status)
	require.Equal(t, "server returned 500", records[0].StatusMsg)
	require.Equal(t, "GET", records[0].Attributes["http.method"])
	require.NotEmpty(t, records[0].TraceID)
}

func TestFileExporter_ShutdownIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	e, err := NewFileExporter(path)
	require.NoError(t, err)

	require.NoError(t, e.Shutdown(context.Background()))
	require.NoError(t, e.Shutdown(context.Background()))
}
