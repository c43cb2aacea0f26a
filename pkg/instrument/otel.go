package instrument

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/reactive/pkg/reactive"
)

// Default tracer name for the engine.
const defaultTracerName = "github.com/vango-dev/reactive"

// OTelConfig configures the OpenTelemetry instrumentation.
type OTelConfig struct {
	// TracerName is the name of the tracer.
	TracerName string

	// TracerProvider provides the tracer.
	// Default: the global provider from otel.GetTracerProvider.
	TracerProvider trace.TracerProvider

	// TrackEvents adds a span event for every subscription recorded during
	// a run. Disabled by default.
	TrackEvents bool

	// Attributes are added to every span.
	Attributes []attribute.KeyValue

	// Context is the parent context of every span.
	// Default: context.Background().
	Context context.Context
}

// OTelOption configures the OpenTelemetry instrumentation.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithTrackEvents enables or disables per-subscription span events.
func WithTrackEvents(enabled bool) OTelOption {
	return func(c *OTelConfig) {
		c.TrackEvents = enabled
	}
}

// WithAttributes adds attributes to every span.
func WithAttributes(attrs ...attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.Attributes = append(c.Attributes, attrs...)
	}
}

// WithParentContext sets the parent context of every span.
func WithParentContext(ctx context.Context) OTelOption {
	return func(c *OTelConfig) {
		c.Context = ctx
	}
}

// defaultOTelConfig returns the default OpenTelemetry configuration.
func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName: defaultTracerName,
		Context:    context.Background(),
	}
}

// OpenTelemetry records a span for every effect run.
//
// Each span carries the effect id and name. Subscriptions recorded and
// stops performed while the span is open are added as span events.
//
// The tracer uses the global OpenTelemetry tracer provider unless
// WithTracerProvider is given. Configure it in main() before installing
// the instrumentation:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
//	reactive.SetInstrumentation(instrument.NewOpenTelemetry())
type OpenTelemetry struct {
	config OTelConfig
	tracer trace.Tracer

	mu sync.Mutex
	// open holds the spans of runs in progress, per effect. An effect that
	// re-enters itself has more than one.
	open map[uint64][]trace.Span
}

// NewOpenTelemetry creates the OpenTelemetry instrumentation.
func NewOpenTelemetry(opts ...OTelOption) *OpenTelemetry {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}

	tp := config.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &OpenTelemetry{
		config: config,
		tracer: tp.Tracer(config.TracerName),
		open:   make(map[uint64][]trace.Span),
	}
}

// spanName creates a span name for an effect.
func spanName(info reactive.EffectInfo) string {
	if info.Name != "" {
		return "reactive.effect " + info.Name
	}
	return fmt.Sprintf("reactive.effect #%d", info.ID)
}

// EffectRun implements reactive.Instrumentation.
func (o *OpenTelemetry) EffectRun(info reactive.EffectInfo) func() {
	attrs := []attribute.KeyValue{
		attribute.Int64("reactive.effect.id", int64(info.ID)),
	}
	if info.Name != "" {
		attrs = append(attrs, attribute.String("reactive.effect.name", info.Name))
	}
	attrs = append(attrs, o.config.Attributes...)

	_, span := o.tracer.Start(o.config.Context, spanName(info),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)

	o.mu.Lock()
	o.open[info.ID] = append(o.open[info.ID], span)
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		stack := o.open[info.ID]
		if n := len(stack); n > 1 {
			o.open[info.ID] = stack[:n-1]
		} else {
			delete(o.open, info.ID)
		}
		o.mu.Unlock()

		span.SetStatus(codes.Ok, "")
		span.End()
	}
}

// current returns the innermost open span of an effect.
func (o *OpenTelemetry) current(id uint64) trace.Span {
	o.mu.Lock()
	defer o.mu.Unlock()
	stack := o.open[id]
	if len(stack) == 0 {
		return nil
	}
	return stack[len(stack)-1]
}

// Tracked implements reactive.Instrumentation.
func (o *OpenTelemetry) Tracked(info reactive.EffectInfo, key any) {
	if !o.config.TrackEvents {
		return
	}
	if span := o.current(info.ID); span != nil {
		span.AddEvent("track", trace.WithAttributes(
			attribute.String("reactive.key", keyString(key)),
		))
	}
}

// Triggered implements reactive.Instrumentation.
func (o *OpenTelemetry) Triggered(any, int) {}

// Stopped implements reactive.Instrumentation.
func (o *OpenTelemetry) Stopped(info reactive.EffectInfo) {
	if span := o.current(info.ID); span != nil {
		span.AddEvent("stopped")
	}
}

// WriteRejected implements reactive.Instrumentation.
func (o *OpenTelemetry) WriteRejected(any) {}

func keyString(key any) string {
	switch k := key.(type) {
	case string:
		return k
	case int:
		return strconv.Itoa(k)
	}
	return fmt.Sprint(key)
}
