/*
Package tracing provides lightweight request tracing.

Each HTTP request gets a span whose trace ID is taken from the X-Trace-ID
header or generated. The IDs travel through the request context, so calls
made on behalf of a request, such as sidecar prompt appends, carry the same
trace headers. Finished spans are logged asynchronously.

	tracer := tracing.New("opencode-tui", logger)
	defer tracer.Close()
	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "deliver")
	defer tracer.Finish(span)
*/
package tracing
