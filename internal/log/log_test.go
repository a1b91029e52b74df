package log

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { SetLevel(LevelInfo) })

	cases := []struct {
		in   string
		want zapcore.Level
	}{
		{LevelDebug, zapcore.DebugLevel},
		{LevelInfo, zapcore.InfoLevel},
		{LevelWarn, zapcore.WarnLevel},
		{LevelError, zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, c := range cases {
		SetLevel(c.in)
		if got := zapLevel.Level(); got != c.want {
			t.Fatalf("SetLevel(%q) = %v; want %v", c.in, got, c.want)
		}
		if Level() != c.want.String() {
			t.Fatalf("Level() = %q; want %q", Level(), c.want.String())
		}
	}
}

func TestNamed(t *testing.T) {
	if Named("capture") == nil {
		t.Fatal("Named returned nil")
	}
}
