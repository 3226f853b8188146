package logging

import (
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger records every entry down to TraceLevel, unsampled, for
// assertions in tests.
type TestLogger struct {
	*Logger
	logs *observer.ObservedLogs
}

// NewTestLogger returns a TestLogger with no entries.
func NewTestLogger() *TestLogger {
	core, logs := observer.New(TraceLevel)
	return &TestLogger{
		Logger: &Logger{zap: zap.New(core), config: NewDefaultConfig()},
		logs:   logs,
	}
}

// All returns the entries logged so far.
func (t *TestLogger) All() []observer.LoggedEntry {
	return t.logs.All()
}

// FilterMessage returns the entries whose message is exactly msg.
func (t *TestLogger) FilterMessage(msg string) *observer.ObservedLogs {
	return t.logs.FilterMessage(msg)
}

// Reset drops the entries logged so far.
func (t *TestLogger) Reset() {
	t.logs.TakeAll()
}

func (t *TestLogger) matching(level zapcore.Level, substr string) []observer.LoggedEntry {
	return t.logs.Filter(func(e observer.LoggedEntry) bool {
		return e.Level == level && strings.Contains(e.Message, substr)
	}).All()
}

// AssertLogged fails tb unless an entry at level has a message containing
// substr.
func (t *TestLogger) AssertLogged(tb testing.TB, level zapcore.Level, substr string) {
	tb.Helper()
	if len(t.matching(level, substr)) == 0 {
		tb.Errorf("no %v entry containing %q; logged: %+v", level, substr, t.All())
	}
}

// AssertNotLogged fails tb if an entry at level has a message containing
// substr.
func (t *TestLogger) AssertNotLogged(tb testing.TB, level zapcore.Level, substr string) {
	tb.Helper()
	if n := len(t.matching(level, substr)); n > 0 {
		tb.Errorf("%d unexpected %v entries containing %q", n, level, substr)
	}
}

// AssertField fails tb unless some entry with message msg carries key with
// value want. Integer fields decode as int64.
func (t *TestLogger) AssertField(tb testing.TB, msg, key string, want any) {
	tb.Helper()
	entries := t.logs.FilterMessage(msg).All()
	for _, e := range entries {
		if got, ok := e.ContextMap()[key]; ok && reflect.DeepEqual(got, want) {
			return
		}
	}
	tb.Errorf("none of %d %q entries has %s=%v", len(entries), msg, key, want)
}
