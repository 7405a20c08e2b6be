package grpc

import (
	"context"
	"crypto/subtle"
	"strings"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const apiKeyMetadata = "x-api-key"

func APIKeyUnaryInterceptor(key string) gogrpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *gogrpc.UnaryServerInfo, handler gogrpc.UnaryHandler) (any, error) {
		if err := validateIncomingAPIKey(ctx, key); err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

func APIKeyStreamInterceptor(key string) gogrpc.StreamServerInterceptor {
	return func(srv any, ss gogrpc.ServerStream, _ *gogrpc.StreamServerInfo, handler gogrpc.StreamHandler) error {
		if err := validateIncomingAPIKey(ss.Context(), key); err != nil {
			return err
		}
		return handler(srv, ss)
	}
}

func validateIncomingAPIKey(ctx context.Context, key string) error {
	apiKey := incomingAPIKeyFromMetadata(ctx)
	if apiKey == "" || key == "" {
		return status.Error(codes.Unauthenticated, "unauthorized")
	}
	if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) != 1 {
		return status.Error(codes.Unauthenticated, "unauthorized")
	}
	return nil
}

func incomingAPIKeyFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(apiKeyMetadata)
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}
