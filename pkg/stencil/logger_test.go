package stencil

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogger(t *testing.T) {
	tests := []struct {
		name           string
		level          LogLevel
		setupFunc      func(*Logger)
		expectedOutput []string
		notExpected    []string
	}{
		{
			name:  "debug level shows all messages",
			level: LogDebug,
			setupFunc: func(l *Logger) {
				l.Debug("debug message")
				l.Info("info message")
				l.Warn("warn message")
				l.Error("error message")
			},
			expectedOutput: []string{
				"[DEBUG]", "debug message",
				"[INFO]", "info message",
				"[WARN]", "warn message",
				"[ERROR]", "error message",
			},
		},
		{
			name:  "info level hides debug messages",
			level: LogInfo,
			setupFunc: func(l *Logger) {
				l.Debug("debug message")
				l.Info("info message")
				l.Warn("warn message")
			},
			expectedOutput: []string{"[INFO]", "info message", "[WARN]", "warn message"},
			notExpected:    []string{"[DEBUG]", "debug message"},
		},
		{
			name:  "error level shows only errors",
			level: LogError,
			setupFunc: func(l *Logger) {
				l.Info("info message")
				l.Warn("warn message")
				l.Error("error message")
			},
			expectedOutput: []string{"[ERROR]", "error message"},
			notExpected:    []string{"[INFO]", "[WARN]"},
		},
		{
			name:  "off level shows nothing",
			level: LogOff,
			setupFunc: func(l *Logger) {
				l.Debug("debug message")
				l.Error("error message")
			},
			notExpected: []string{"[DEBUG]", "[ERROR]", "message"},
		},
		{
			name:  "structured fields",
			level: LogDebug,
			setupFunc: func(l *Logger) {
				l.WithFields(Fields{
					"part":      "content.xml",
					"render_id": "abc",
				}).Debug("state %s", "Loaded")
			},
			expectedOutput: []string{"state Loaded", `"part": "content.xml"`, `"render_id": "abc"`},
		},
		{
			name:  "formatting arguments",
			level: LogInfo,
			setupFunc: func(l *Logger) {
				l.Info("rendered %d parts in %s", 2, "content.xml")
			},
			expectedOutput: []string{"rendered 2 parts in content.xml"},
		},
		{
			name:  "debug mode helpers",
			level: LogDebug,
			setupFunc: func(l *Logger) {
				l.DebugTemplate("<text:p>{{ name }}</text:p>", map[string]interface{}{"name": "value1"})
				l.DebugExpression("price * 1.2", 24.0)
			},
			expectedOutput: []string{
				"Template: <text:p>{{ name }}</text:p>",
				"Context: map[name:value1]",
				"Expression: price * 1.2",
				"Result: 24",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(&buf, tt.level)

			tt.setupFunc(logger)

			output := buf.String()
			for _, expected := range tt.expectedOutput {
				if !strings.Contains(output, expected) {
					t.Errorf("Expected output to contain %q, but it didn't.\nOutput: %s", expected, output)
				}
			}
			for _, notExpected := range tt.notExpected {
				if strings.Contains(output, notExpected) {
					t.Errorf("Expected output NOT to contain %q, but it did.\nOutput: %s", notExpected, output)
				}
			}
		})
	}
}

func TestGlobalLogger(t *testing.T) {
	original := GetLogger()
	defer SetLogger(original)

	var buf bytes.Buffer
	SetLogger(NewLogger(&buf, LogDebug))

	Debug("test debug")
	Info("test info")
	Warn("test warn")
	Error("test error")
	WithField("part", "styles.xml").Info("with field")

	output := buf.String()
	for _, expected := range []string{"test debug", "test info", "test warn", "test error", `"part": "styles.xml"`} {
		if !strings.Contains(output, expected) {
			t.Errorf("Expected output to contain %q, but it didn't.\nOutput: %s", expected, output)
		}
	}
}

func TestDebugMode(t *testing.T) {
	logger := NewLogger(nil, LogDebug)
	if !logger.IsDebugMode() {
		t.Error("Expected IsDebugMode() to return true for LogDebug level")
	}

	logger.SetLevel(LogInfo)
	if logger.IsDebugMode() {
		t.Error("Expected IsDebugMode() to return false for LogInfo level")
	}
}

func TestDerivedLoggerSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LogInfo)
	child := logger.WithField("render_id", "1")

	child.Debug("hidden")
	logger.SetLevel(LogDebug)
	child.Debug("shown")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Errorf("debug line logged before level change: %s", output)
	}
	if !strings.Contains(output, "shown") {
		t.Errorf("debug line missing after level change: %s", output)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   LogDebug,
		"INFO":    LogInfo,
		"warning": LogWarn,
		"error":   LogError,
		"off":     LogOff,
		"bogus":   LogInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
