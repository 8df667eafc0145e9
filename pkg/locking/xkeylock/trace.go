package xkeylock

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	// tracerName 追踪器名称
	tracerName = "xkeylock"

	// spanNameAcquire 获取操作的 span 名称
	spanNameAcquire = "xkeylock.Acquire"
)

// Span 属性名称
const (
	attrKey      = "xkeylock.key"
	attrMode     = "xkeylock.mode"
	attrHandleID = "xkeylock.handle_id"
)

// newTracer 创建 tracer。tp 为 nil 时返回 noop tracer（不追踪）。
func newTracer(tp trace.TracerProvider) trace.Tracer {
	if tp == nil {
		return noop.NewTracerProvider().Tracer(tracerName)
	}
	return tp.Tracer(tracerName)
}

// startSpan 创建获取操作的 span。key 以 %v 格式化为低开销字符串属性。
func startSpan[K comparable](ctx context.Context, tracer trace.Tracer, name string, key K, mode string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindInternal))
	if span.IsRecording() {
		span.SetAttributes(
			attribute.String(attrKey, fmt.Sprintf("%v", key)),
			attribute.String(attrMode, mode),
		)
	}
	return ctx, span
}

func setSpanAcquired(span trace.Span, handleID string) {
	if span.IsRecording() {
		span.SetAttributes(attribute.String(attrHandleID, handleID))
		span.SetStatus(codes.Ok, "")
	}
}

func setSpanError(span trace.Span, err error) {
	if span.IsRecording() {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
