package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime/strictmiddleware/nethttp"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/openkcm/common-sdk/pkg/otlp"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/admin-console/internal/config"
	"github.com/openkcm/admin-console/internal/signout"
)

// The instruments stay no-ops until initMeters succeeds.
var (
	counter        metric.Int64Counter   = noop.Int64Counter{}
	hist           metric.Int64Histogram = noop.Int64Histogram{}
	renderCounter  metric.Int64Counter   = noop.Int64Counter{}
	signOutCounter metric.Int64Counter   = noop.Int64Counter{}
)

func initMeters(ctx context.Context, cfg *config.Config) error {
	meter := otel.Meter(
		"admin-console/"+cfg.Application.Name,
		metric.WithInstrumentationVersion(otel.Version()),
		metric.WithInstrumentationAttributes(otlp.CreateAttributesFrom(cfg.Application)...),
	)

	var err error

	counter, err = meter.Int64Counter(
		"http.request_count",
		metric.WithDescription("Incoming request count"),
		metric.WithUnit("request"),
	)
	if err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "creating request_count meter")
	}

	hist, err = meter.Int64Histogram(
		"http.duration",
		metric.WithDescription("Incoming end to end duration"),
		metric.WithUnit("milliseconds"),
	)
	if err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "creating duration meter")
	}

	renderCounter, err = meter.Int64Counter(
		"admin.render_count",
		metric.WithDescription("Admin page renders"),
		metric.WithUnit("render"),
	)
	if err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "creating render_count meter")
	}

	signOutCounter, err = meter.Int64Counter(
		"auth.signout_count",
		metric.WithDescription("Sign-out requests by outcome"),
		metric.WithUnit("request"),
	)
	if err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "creating signout_count meter")
	}

	return nil
}

// requestTracer starts a span and the request scoped log attributes for
// every request of one operation.
type requestTracer struct {
	cfg         *config.Config
	operationID string
	traceAttrs  []attribute.KeyValue
	tracer      trace.Tracer
}

func newRequestTracer(cfg *config.Config, operationID string) *requestTracer {
	traceAttrs := otlp.CreateAttributesFrom(cfg.Application, attribute.String(commoncfg.AttrOperation, operationID))

	return &requestTracer{
		cfg:         cfg,
		operationID: operationID,
		traceAttrs:  traceAttrs,
		tracer:      otel.Tracer(operationID, trace.WithInstrumentationAttributes(traceAttrs...)),
	}
}

// start returns the request context and a function that ends the span and
// records the request metrics.
func (rt *requestTracer) start(ctx context.Context, r *http.Request) (context.Context, func()) {
	ctx = slogctx.With(ctx,
		commoncfg.AttrRequestID, uuid.NewString(),
		commoncfg.AttrOperation, rt.operationID,
	)

	parentCtx := otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(r.Header))

	ctx, span := rt.tracer.Start(parentCtx, rt.operationID+"-span", trace.WithAttributes(rt.traceAttrs...))

	requestStartTime := time.Now()
	slogctx.Info(ctx, fmt.Sprintf("Processing %s request", rt.operationID))

	return ctx, func() {
		elapsedTime := time.Since(requestStartTime)

		attrs := metric.WithAttributes(
			otlp.CreateAttributesFrom(rt.cfg.Application,
				attribute.String("userAgent", r.UserAgent()),
				attribute.String(commoncfg.AttrOperation, rt.operationID),
			)...,
		)

		counter.Add(ctx, 1, attrs)
		hist.Record(ctx, elapsedTime.Milliseconds(), attrs)

		slogctx.Info(ctx, fmt.Sprintf("Finished %s request", rt.operationID))
		span.End()
	}
}

// newTraceMiddleware covers the openapi.StrictServerInterface with tracing.
func newTraceMiddleware(cfg *config.Config) nethttp.StrictHTTPMiddlewareFunc {
	return func(f nethttp.StrictHTTPHandlerFunc, operationID string) nethttp.StrictHTTPHandlerFunc {
		rt := newRequestTracer(cfg, operationID)

		return func(ctx context.Context, w http.ResponseWriter, r *http.Request, request interface{}) (interface{}, error) {
			ctx, finish := rt.start(ctx, r)
			defer finish()

			return f(ctx, w, r, request)
		}
	}
}

// traceHandler covers a plain http.Handler with tracing.
func traceHandler(cfg *config.Config, operationID string, next http.Handler) http.Handler {
	rt := newRequestTracer(cfg, operationID)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, finish := rt.start(r.Context(), r)
		defer finish()

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func recordRender(cfg *config.Config) func(ctx context.Context, page string, err error) {
	return func(ctx context.Context, page string, err error) {
		result := "success"
		if err != nil {
			result = "error"
		}

		renderCounter.Add(ctx, 1, metric.WithAttributes(
			otlp.CreateAttributesFrom(cfg.Application,
				attribute.String("page", page),
				attribute.String("result", result),
			)...,
		))
	}
}

func recordSignOut(cfg *config.Config) func(ctx context.Context, outcome signout.Outcome) {
	return func(ctx context.Context, outcome signout.Outcome) {
		signOutCounter.Add(ctx, 1, metric.WithAttributes(
			otlp.CreateAttributesFrom(cfg.Application,
				attribute.String("outcome", string(outcome)),
			)...,
		))
	}
}
