// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Logger 是全局的结构化日志实例，所有服务共用。
var Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init 在服务启动时注入服务名等公共字段。
func Init(serviceName string) {
	Logger = zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// Ctx 返回一个携带当前 TraceID 的日志实例，
// 让日志和 Jaeger 里的链路可以互相关联。
func Ctx(ctx context.Context) *zerolog.Logger {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.HasTraceID() {
		return &Logger
	}
	l := Logger.With().Str("trace_id", spanCtx.TraceID().String()).Logger()
	return &l
}
