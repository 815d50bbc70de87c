package otel

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Logger 構造化ロガー（1行1JSON、アクティブなスパンのIDを付与）
type Logger struct {
	tracer trace.Tracer
	out    *log.Logger
	now    func() time.Time
}

// NewLogger 標準出力に書き出すLoggerを作成
func NewLogger(tracer trace.Tracer) *Logger {
	return NewLoggerWithWriter(tracer, os.Stdout)
}

// NewLoggerWithWriter 任意の出力先に書き出すLoggerを作成
func NewLoggerWithWriter(tracer trace.Tracer, w io.Writer) *Logger {
	return &Logger{
		tracer: tracer,
		out:    log.New(w, "", 0),
		now:    time.Now,
	}
}

// LogLevel ログレベル
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// LogEntry ログエントリ
type LogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	TraceID   string                 `json:"trace_id,omitempty"`
	SpanID    string                 `json:"span_id,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// Log ログを出力
func (l *Logger) Log(ctx context.Context, level LogLevel, message string, fields map[string]interface{}) {
	entry := LogEntry{
		Level:     string(level),
		Message:   message,
		Fields:    fields,
		Timestamp: l.now().UTC().Format(time.RFC3339Nano),
	}

	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		entry.TraceID = sc.TraceID().String()
		entry.SpanID = sc.SpanID().String()
	}

	jsonData, err := json.Marshal(entry)
	if err != nil {
		l.out.Printf(`{"level":"ERROR","message":"failed to marshal log entry","fields":{"error":%q}}`, err.Error())
		return
	}

	l.out.Println(string(jsonData))
}

// Debug Debugレベルのログを出力
func (l *Logger) Debug(ctx context.Context, message string, fields map[string]interface{}) {
	l.Log(ctx, LogLevelDebug, message, fields)
}

// Info Infoレベルのログを出力
func (l *Logger) Info(ctx context.Context, message string, fields map[string]interface{}) {
	l.Log(ctx, LogLevelInfo, message, fields)
}

// Warn Warnレベルのログを出力
func (l *Logger) Warn(ctx context.Context, message string, fields map[string]interface{}) {
	l.Log(ctx, LogLevelWarn, message, fields)
}

// Error Errorレベルのログを出力
func (l *Logger) Error(ctx context.Context, message string, err error, fields map[string]interface{}) {
	merged := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		merged[k] = v
	}
	if err != nil {
		merged["error"] = err.Error()
	}
	l.Log(ctx, LogLevelError, message, merged)
}
