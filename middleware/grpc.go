// Package middleware provides admission middleware for HTTP and gRPC servers.
//
// The core package works with any net/http stack (including chi and other
// router libraries). Framework-native adapters live in subpackages so their
// dependencies stay optional: ginmw, echomw, fibermw, and grpcmw.
//
// # gRPC Interceptors
//
// The grpcmw subpackage provides unary and stream server interceptors:
//
//	import (
//	    llmgate "github.com/krishna-kudari/llmgate"
//	    "github.com/krishna-kudari/llmgate/middleware/grpcmw"
//	    "google.golang.org/grpc"
//	)
//
//	quota := llmgate.Quota{RPM: 1000, InputTPM: 200000, OutputTPM: 80000}
//	limiter, _ := llmgate.NewHybridSlidingWindow(quota, llmgate.WithRedis(redisClient))
//	server := grpc.NewServer(
//	    grpc.UnaryInterceptor(grpcmw.UnaryServerInterceptor(limiter, grpcmw.KeyByMetadata("x-api-key"))),
//	    grpc.StreamInterceptor(grpcmw.StreamServerInterceptor(limiter, grpcmw.StreamKeyByPeer)),
//	)
//
// Denied calls return codes.ResourceExhausted with the denial reason. Token
// usage per call comes from an optional UsageFunc on the interceptor Config;
// without one only the rpm dimension is charged.
//
// For stacks where the subpackage dependency is unwanted, a minimal
// interceptor is a few lines:
//
//	func AdmissionUnaryInterceptor(limiter llmgate.Limiter, keyFunc func(ctx context.Context) string) grpc.UnaryServerInterceptor {
//	    return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
//	        result, err := limiter.Allow(ctx, keyFunc(ctx), llmgate.Usage{})
//	        if err != nil {
//	            return handler(ctx, req) // fail open
//	        }
//	        if !result.Allowed {
//	            return nil, status.Errorf(codes.ResourceExhausted, "rate limit exceeded: %s", result.Reason)
//	        }
//	        return handler(ctx, req)
//	    }
//	}
package middleware
