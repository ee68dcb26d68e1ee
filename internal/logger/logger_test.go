package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		for _, format := range []string{"json", "console"} {
			log, err := New(tt.level, format)
			if err != nil {
				t.Fatal(err)
			}
			if !log.Core().Enabled(tt.want) {
				t.Errorf("%s/%s: %v disabled", tt.level, format, tt.want)
			}
			if tt.want > zapcore.DebugLevel && log.Core().Enabled(tt.want-1) {
				t.Errorf("%s/%s: %v enabled", tt.level, format, tt.want-1)
			}
		}
	}
}
