package main

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	apiv1 "github.com/SanjoDeundiak/server-supervisor/api/v1"
)

// GRPCServer encapsulates TLS/mTLS configuration, gRPC server instance and listener.
type GRPCServer struct {
	lis net.Listener
	s   *grpc.Server
}

// NewGRPCServer constructs a TLS-enabled gRPC server that requires client certs (mTLS),
// registers svc, and prepares it to serve on addr.
func NewGRPCServer(addr string, svc *SupervisorServiceServer) (*GRPCServer, error) {
	keyPEM := os.Getenv("GSV_TLS_KEY")
	certPEM := os.Getenv("GSV_TLS_CERT")
	caPEM := os.Getenv("GSV_CA_TLS_CERT")
	if keyPEM == "" || certPEM == "" || caPEM == "" {
		return nil, fmt.Errorf("missing TLS environment variables; require GSV_TLS_KEY, GSV_TLS_CERT, GSV_CA_TLS_CERT")
	}

	cert, err := tls.X509KeyPair([]byte(certPEM), []byte(keyPEM))
	if err != nil {
		return nil, fmt.Errorf("failed to load server key pair: %w", err)
	}

	caPool := x509.NewCertPool()
	if ok := caPool.AppendCertsFromPEM([]byte(caPEM)); !ok {
		return nil, fmt.Errorf("failed to append CA certificate to pool")
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      caPool,
		ClientCAs:    caPool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS13,
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	s := newServer(svc, injectSpiffeIdUnary, injectSpiffeIdStream, grpc.Creds(credentials.NewTLS(tlsConfig)))

	return &GRPCServer{lis: lis, s: s}, nil
}

// newServer registers svc behind the identity interceptors, then the
// operator authorization.
func newServer(svc *SupervisorServiceServer, identityUnary grpc.UnaryServerInterceptor, identityStream grpc.StreamServerInterceptor, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts,
		grpc.ChainUnaryInterceptor(identityUnary, svc.authorizeUnary),
		grpc.ChainStreamInterceptor(identityStream),
	)
	s := grpc.NewServer(opts...)
	apiv1.RegisterSupervisorServiceServer(s, svc)
	return s
}

// Serve starts serving gRPC on the configured listener.
func (g *GRPCServer) Serve() error {
	return g.s.Serve(g.lis)
}

// Addr returns the network address the server is bound to.
func (g *GRPCServer) Addr() net.Addr { return g.lis.Addr() }

// GracefulStop stops accepting connections and waits for in-flight RPCs.
func (g *GRPCServer) GracefulStop() { g.s.GracefulStop() }
