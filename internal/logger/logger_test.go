package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T, level string, format OutputFormat, fn func()) string {
	t.Helper()
	buf := &bytes.Buffer{}
	SetTestOutput(buf)
	defer UnsetTestOutput()

	logger = nil
	InitLogger(level, format)
	fn()
	return buf.String()
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		logFn    func()
		contains []string
		excludes []string
	}{
		{
			name:     "info log",
			level:    "info",
			logFn:    func() { Info("fetching catalog") },
			contains: []string{"fetching catalog", "level=INFO"},
		},
		{
			name:     "debug hidden at info",
			level:    "info",
			logFn:    func() { Debug("probing url") },
			excludes: []string{"probing url"},
		},
		{
			name:     "debug shown at debug",
			level:    "debug",
			logFn:    func() { Debug("probing url", Fields{"url": "http://x"}) },
			contains: []string{"probing url", "level=DEBUG", "url=http://x"},
		},
		{
			name:     "warn with fields",
			level:    "warn",
			logFn:    func() { Warn("annotation skipped", Fields{"genome": "hg38", "attempt": 1}) },
			contains: []string{"annotation skipped", "genome=hg38", "attempt=1"},
		},
		{
			name:     "success",
			level:    "info",
			logFn:    func() { Success("genome installed") },
			contains: []string{"genome installed", "status=success"},
		},
		{
			name:     "formatted debug with fields",
			level:    "debug",
			logFn:    func() { DebugfWithFields(Fields{"genome": "sacCer3"}, "wrote %d records", 17) },
			contains: []string{"wrote 17 records", "genome=sacCer3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := captureOutput(t, tt.level, FormatText, tt.logFn)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			for _, notWant := range tt.excludes {
				assert.NotContains(t, out, notWant)
			}
		})
	}
}

func TestJSONFormat(t *testing.T) {
	out := captureOutput(t, "info", FormatJSON, func() {
		Info("catalog loaded", Fields{"provider": "ucsc", "entries": 42})
	})
	assert.Contains(t, out, `"msg":"catalog loaded"`)
	assert.Contains(t, out, `"provider":"ucsc"`)
	assert.Contains(t, out, `"entries":42`)
}

func TestSetOutputFormatKeepsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	SetTestOutput(buf)
	defer UnsetTestOutput()

	InitLogger("error", FormatText)
	SetOutputFormat(FormatJSON)
	Info("hidden")
	Error("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestMergeFieldsLaterWins(t *testing.T) {
	attrs := mergeFields(Fields{"k": "a"}, Fields{"k": "b", "n": 1})
	result := map[string]interface{}{}
	for i := 0; i < len(attrs); i += 2 {
		result[attrs[i].(string)] = attrs[i+1]
	}
	assert.Equal(t, map[string]interface{}{"k": "b", "n": 1}, result)
}

func TestGetLogger_InitializesIfNil(t *testing.T) {
	logger = nil
	assert.NotPanics(t, func() {
		assert.NotNil(t, GetLogger())
	})
}
