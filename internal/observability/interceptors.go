// Package observability provides the ops HTTP server and gRPC client instrumentation.
package observability

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"speech-analytics-pipeline/internal/observability/metrics"
)

// UnaryClientInterceptor returns a gRPC client interceptor that records latency
// and error codes of calls made to Google Cloud APIs.
func UnaryClientInterceptor(m *metrics.Metrics) grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply interface{},
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		start := time.Now()

		err := invoker(ctx, method, req, reply, cc, opts...)

		duration := time.Since(start)
		code := ""
		if st := status.Code(err); st != codes.OK {
			code = st.String()
		}
		m.RecordExternalCall(method, code, duration.Seconds())

		log.Debug().
			Str("method", method).
			Str("code", status.Code(err).String()).
			Dur("duration", duration).
			Msg("gRPC client call")

		return err
	}
}
