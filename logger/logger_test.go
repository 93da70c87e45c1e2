package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   LogLevel
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"WARN", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.DebugLevel},
		{"", zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestHelpersBeforeInit(t *testing.T) {
	// 未初始化时所有输出函数都应该是安全的空操作
	assert.NotPanics(t, func() {
		Debug("debug", String("k", "v"))
		Info("info", Int("n", 1))
		Warn("warn", Bool("b", true), Strings("s", []string{"a"}))
		Error("error", ErrorField(errors.New("boom")))
		Sync()
	})
	assert.NotNil(t, L())
}
