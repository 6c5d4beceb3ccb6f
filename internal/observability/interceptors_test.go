package observability

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"speech-analytics-pipeline/internal/observability/metrics"
)

func TestUnaryClientInterceptor_RecordsErrors(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	icpt := UnaryClientInterceptor(m)

	const method = "/google.privacy.dlp.v2.DlpService/DeidentifyContent"
	failing := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		return status.Error(codes.ResourceExhausted, "quota")
	}
	ok := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		return nil
	}

	if err := icpt(context.Background(), method, nil, nil, nil, failing); status.Code(err) != codes.ResourceExhausted {
		t.Fatalf("expected error to pass through, got %v", err)
	}
	if err := icpt(context.Background(), method, nil, nil, nil, ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := testutil.ToFloat64(m.ExternalCallErrors.WithLabelValues(method, "ResourceExhausted")); got != 1 {
		t.Errorf("expected 1 recorded error, got %v", got)
	}
}
