package http

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/postboard/internal/logging"
	"github.com/dmitrijs2005/postboard/internal/server/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/thejerf/abtime"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type logEntry struct {
	level string
	msg   string
	attrs map[string]any
}

// recordingLogger keeps every entry so tests can assert on what was logged.
type recordingLogger struct {
	mu      sync.Mutex
	entries *[]logEntry
	base    []any
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{entries: &[]logEntry{}}
}

func (l *recordingLogger) log(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	attrs := map[string]any{}
	all := append(append([]any{}, l.base...), args...)
	for i := 0; i+1 < len(all); i += 2 {
		if k, ok := all[i].(string); ok {
			attrs[k] = all[i+1]
		}
	}
	*l.entries = append(*l.entries, logEntry{level: level, msg: msg, attrs: attrs})
}

func (l *recordingLogger) Debug(_ context.Context, msg string, args ...any) { l.log("debug", msg, args) }
func (l *recordingLogger) Info(_ context.Context, msg string, args ...any)  { l.log("info", msg, args) }
func (l *recordingLogger) Warn(_ context.Context, msg string, args ...any)  { l.log("warn", msg, args) }
func (l *recordingLogger) Error(_ context.Context, msg string, args ...any) { l.log("error", msg, args) }

func (l *recordingLogger) With(args ...any) logging.Logger {
	return &recordingLogger{entries: l.entries, base: append(append([]any{}, l.base...), args...)}
}

func (l *recordingLogger) find(msg string) (logEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range *l.entries {
		if e.msg == msg {
			return e, true
		}
	}
	return logEntry{}, false
}

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestCodec(t *testing.T) (*auth.TokenCodec, *abtime.ManualTime) {
	t.Helper()
	clock := abtime.NewManualAtTime(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	return auth.NewTokenCodec(testSecret, time.Hour, clock), clock
}

func mustToken(t *testing.T, codec *auth.TokenCodec, id int64, email, nickname string, authorities ...string) string {
	t.Helper()
	tok, err := codec.Encode(id, email, nickname, authorities)
	require.NoError(t, err)
	return tok
}
