package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAndDiscardDoNotPanic(t *testing.T) {
	t.Parallel()
	for _, log := range []Logger{Default(), Discard()} {
		require.NotNil(t, log)
		log.Debug("debug message")
		log.Info("test message")
	}
}

func TestJSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelInfo)
	log.Info("hello", "key", "value")

	out := buf.String()
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, `"key":"value"`)
	assert.Contains(t, out, `"level":"INFO"`)
}

func TestJSONLevelFiltering(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelWarn)
	log.Info("should not appear")
	log.Debug("also should not appear")
	require.Zero(t, buf.Len(), "got: %s", buf.String())

	log.Warn("should appear")
	assert.Contains(t, buf.String(), "should appear")
}

func TestForFormat(t *testing.T) {
	t.Parallel()
	tests := []struct {
		format string
		want   string
	}{
		{"json", `"msg":"hi"`},
		{"JSON", `"msg":"hi"`},
		{"text", "msg=hi"},
		{"pretty", "\033[0m hi\n"},
		{"", "\033[0m hi\n"},
	}
	for _, tc := range tests {
		var buf bytes.Buffer
		ForFormat(&buf, tc.format, "info").Info("hi")
		assert.Contains(t, buf.String(), tc.want, "format %q", tc.format)
	}

	var buf bytes.Buffer
	ForFormat(&buf, "json", "error").Warn("dropped")
	assert.Zero(t, buf.Len())
}

func TestPrettyKeyValues(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := Pretty(&buf, slog.LevelInfo)
	log.Info("test message", "key", "value", "took", 1500*time.Microsecond)

	out := buf.String()
	assert.Contains(t, out, "test message")
	assert.Contains(t, out, "key=value")
	assert.Contains(t, out, "took=2ms")
}

func TestPrettyComponentPrefix(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := Pretty(&buf, slog.LevelInfo).With(ComponentKey, "translate")
	log.Info("request sent", "status", 200)

	out := buf.String()
	assert.Contains(t, out, "[translate] ")
	assert.Contains(t, out, "request sent")
	assert.NotContains(t, out, "component=")
	assert.Contains(t, out, "status=200")
}

func TestPrettyDebugLevel(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	Pretty(&buf, slog.LevelDebug).Debug("debug msg")
	assert.Contains(t, buf.String(), "debug msg")
}

func TestWith(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	child := JSON(&buf, slog.LevelInfo).With("component", "test")
	child.Info("child message")

	assert.Contains(t, buf.String(), `"component":"test"`)
	assert.Contains(t, buf.String(), "child message")
}

func TestWithGroup(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	JSON(&buf, slog.LevelInfo).WithGroup("mygroup").Info("grouped message", "field", "val")
	assert.Contains(t, buf.String(), `"mygroup":{"field":"val"}`)
}

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()
	require.NotNil(t, FromContext(context.Background()))

	var buf bytes.Buffer
	ctx := WithContext(context.Background(), JSON(&buf, slog.LevelInfo))
	FromContext(ctx).Info("roundtrip test")
	assert.Contains(t, buf.String(), "roundtrip test")
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{" info ", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.expected, ParseLevel(tc.input), "ParseLevel(%q)", tc.input)
	}
}

func TestPrettyHandlerEnabled(t *testing.T) {
	t.Parallel()
	h := NewPrettyHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	ctx := context.Background()
	assert.False(t, h.Enabled(ctx, slog.LevelInfo))
	assert.True(t, h.Enabled(ctx, slog.LevelWarn))
	assert.True(t, h.Enabled(ctx, slog.LevelError))
}

func TestPrettyHandlerGroups(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, nil)
	require.Same(t, h, h.WithGroup(""))

	slog.New(h.WithGroup("a").WithGroup("b")).Info("nested", "key", "val")
	assert.Contains(t, buf.String(), "a.b.key=val")

	buf.Reset()
	slog.New(h.WithAttrs([]slog.Attr{slog.String("service", "test")})).Info("with attrs")
	assert.Contains(t, buf.String(), "service=test")
}

func TestPrettyQuoting(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, nil))
	log.Info("test", "msg", "hello world", "key", "simple")

	out := buf.String()
	assert.Contains(t, out, `msg="hello world"`)
	assert.Contains(t, out, "key=simple")
	assert.False(t, strings.Contains(out, `key="simple"`))
}

func TestNeedsQuoting(t *testing.T) {
	t.Parallel()
	tests := map[string]bool{
		"simple":           false,
		"has space":        true,
		"has\ttab":         true,
		"has\nnewline":     true,
		`has"quote`:        true,
		"a=b":              true,
		"":                 false,
		"no-special-chars": false,
	}
	for in, want := range tests {
		assert.Equal(t, want, needsQuoting(in), "needsQuoting(%q)", in)
	}
}
