package grpc

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"go-commerce/pkg/errors"
	"go-commerce/pkg/logger"
)

const (
	// TraceIDMetadataKey is the metadata key for trace ID
	TraceIDMetadataKey = "x-trace-id"
)

// UnaryServerInterceptor creates a server interceptor for logging, tracing,
// panic recovery and error mapping
func UnaryServerInterceptor(log *logger.Logger, timeout time.Duration) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		start := time.Now()

		traceID := extractTraceID(ctx)
		if traceID == "" {
			traceID = uuid.New().String()
		}
		ctx = logger.WithTraceIDContext(ctx, traceID)
		_ = grpc.SetHeader(ctx, metadata.Pairs(TraceIDMetadataKey, traceID))

		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		defer func() {
			if r := recover(); r != nil {
				log.WithContext(ctx).Error("panic recovered",
					zap.Any("panic", r),
					zap.String("stack", string(debug.Stack())),
					zap.String("method", info.FullMethod),
				)
				resp, err = nil, status.Error(codes.Internal, "an internal error occurred")
			}
		}()

		resp, err = handler(ctx, req)

		logFields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Duration("duration", time.Since(start)),
			zap.String("trace_id", traceID),
		}

		if err != nil {
			// domain errors become gRPC statuses; statuses pass through
			if _, ok := status.FromError(err); !ok {
				err = errors.GRPCStatus(err)
			}
			st, _ := status.FromError(err)
			logFields = append(logFields, zap.String("grpc_code", st.Code().String()))
			if isClientError(st.Code()) {
				log.WithContext(ctx).Warn("grpc request rejected", logFields...)
			} else {
				log.WithContext(ctx).Error("grpc request failed", logFields...)
			}
			return nil, err
		}

		log.WithContext(ctx).Debug("grpc request completed", logFields...)
		return resp, nil
	}
}

func isClientError(code codes.Code) bool {
	switch code {
	case codes.InvalidArgument, codes.NotFound, codes.AlreadyExists,
		codes.FailedPrecondition, codes.Unauthenticated, codes.PermissionDenied:
		return true
	}
	return false
}

// tracedStream carries the trace-id context into stream handlers
type tracedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *tracedStream) Context() context.Context {
	return s.ctx
}

// StreamServerInterceptor creates a stream server interceptor
func StreamServerInterceptor(log *logger.Logger) grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		start := time.Now()

		traceID := extractTraceID(ss.Context())
		if traceID == "" {
			traceID = uuid.New().String()
		}
		ctx := logger.WithTraceIDContext(ss.Context(), traceID)

		err := handler(srv, &tracedStream{ServerStream: ss, ctx: ctx})

		log.WithContext(ctx).Info("grpc stream completed",
			zap.String("method", info.FullMethod),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)

		return err
	}
}

func extractTraceID(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}

	values := md.Get(TraceIDMetadataKey)
	if len(values) > 0 {
		return values[0]
	}
	return ""
}
