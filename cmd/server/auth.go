package main

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	apiv1 "github.com/SanjoDeundiak/server-supervisor/api/v1"
	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/logging"
)

type spiffeIdContextKey struct{}

func extractSpiffeIdFromContext(ctx context.Context) *string {
	if v := ctx.Value(spiffeIdContextKey{}); v != nil {
		if spiffeId, ok := v.(string); ok {
			return &spiffeId
		}
	}
	return nil
}

func extractSpiffeIdFromTls(ctx context.Context) *string {
	// First, check if it was already injected into context.
	if v := extractSpiffeIdFromContext(ctx); v != nil {
		return v
	}

	p, ok := peer.FromContext(ctx)
	if !ok || p == nil {
		return nil
	}

	ti, ok := p.AuthInfo.(credentials.TLSInfo)
	if !ok {
		return nil
	}

	state := ti.State

	if len(state.PeerCertificates) == 0 || state.PeerCertificates[0] == nil {
		return nil
	}

	leaf := state.PeerCertificates[0]

	// Find the first SPIFFE URI SAN
	for _, uri := range leaf.URIs {
		if uri == nil {
			continue
		}
		if uri.Scheme == "spiffe" {
			// Trust domain (host) is the operator ID, e.g. spiffe://ops1 -> "ops1"
			return &uri.Host
		}
	}

	return nil
}

func injectSpiffeId(ctx context.Context, spiffeId string) context.Context {
	return context.WithValue(ctx, spiffeIdContextKey{}, spiffeId)
}

// injectSpiffeIdUnary extracts the SPIFFE ID from the TLS certificate.
func injectSpiffeIdUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	spiffeId := extractSpiffeIdFromTls(ctx)

	if spiffeId == nil {
		return nil, status.Error(codes.Unauthenticated, "client must have SPIFFE ID")
	}

	ctx = injectSpiffeId(ctx, *spiffeId)

	return handler(ctx, req)
}

type streamWithCtx struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *streamWithCtx) Context() context.Context { return s.ctx }

// injectSpiffeIdStream extracts the SPIFFE ID from the TLS certificate.
func injectSpiffeIdStream(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	ctx := ss.Context()

	spiffeId := extractSpiffeIdFromTls(ctx)

	if spiffeId == nil {
		return status.Error(codes.Unauthenticated, "client must have SPIFFE ID")
	}

	ctx = injectSpiffeId(ctx, *spiffeId)

	return handler(srv, &streamWithCtx{ServerStream: ss, ctx: ctx})
}

// controlMethods change the server's state and are limited to allowed
// operators. Status and StreamEvents stay open to any authenticated peer.
var controlMethods = map[string]struct{}{
	apiv1.SupervisorService_Start_FullMethodName:       {},
	apiv1.SupervisorService_Stop_FullMethodName:        {},
	apiv1.SupervisorService_Restart_FullMethodName:     {},
	apiv1.SupervisorService_SendCommand_FullMethodName: {},
}

// authorizeUnary must run after injectSpiffeIdUnary.
func (s *SupervisorServiceServer) authorizeUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if _, ok := controlMethods[info.FullMethod]; !ok {
		return handler(ctx, req)
	}

	spiffeId := extractSpiffeIdFromContext(ctx)
	if spiffeId == nil {
		return nil, status.Error(codes.Unauthenticated, "client must have SPIFFE ID")
	}

	if len(s.operators) > 0 {
		if _, ok := s.operators[*spiffeId]; !ok {
			s.logger.Warn("operator denied", logging.OperatorKey, *spiffeId, "method", info.FullMethod)
			return nil, status.Error(codes.PermissionDenied, "operator is not allowed to control the server")
		}
	}

	s.logger.Info("control request", logging.OperatorKey, *spiffeId, "method", info.FullMethod)
	return handler(ctx, req)
}

// operatorOf names the caller for audit logs.
func operatorOf(ctx context.Context) string {
	if spiffeId := extractSpiffeIdFromContext(ctx); spiffeId != nil {
		return *spiffeId
	}
	return "unknown"
}
