package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/status"
)

const defaultAddress = "localhost:50051"

func dial(ctx context.Context) (*grpc.ClientConn, error) {
	addr := os.Getenv("GSV_ADDRESS")
	if strings.TrimSpace(addr) == "" {
		addr = defaultAddress
	}

	keyPEM := os.Getenv("GSV_TLS_KEY")
	certPEM := os.Getenv("GSV_TLS_CERT")
	caPEM := os.Getenv("GSV_CA_TLS_CERT")
	if strings.TrimSpace(keyPEM) == "" || strings.TrimSpace(certPEM) == "" || strings.TrimSpace(caPEM) == "" {
		return nil, fmt.Errorf("missing TLS environment variables; require GSV_TLS_KEY, GSV_TLS_CERT, GSV_CA_TLS_CERT")
	}

	cert, err := tls.X509KeyPair([]byte(certPEM), []byte(keyPEM))
	if err != nil {
		return nil, fmt.Errorf("failed to parse TLS cert/key from env: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM([]byte(caPEM)) {
		return nil, fmt.Errorf("failed to parse CA cert from env")
	}

	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      pool,
		MinVersion:   tls.VersionTLS13,
	}
	creds := credentials.NewTLS(cfg)

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func grpcCode(err error) codes.Code {
	st, ok := status.FromError(err)
	if !ok {
		return codes.Unknown
	}
	return st.Code()
}

// describeRPCError turns common rejections into operator-facing text.
func describeRPCError(err error) error {
	switch grpcCode(err) {
	case codes.PermissionDenied:
		return fmt.Errorf("forbidden: this operator may not control the server")
	case codes.ResourceExhausted:
		return fmt.Errorf("too many commands, slow down")
	case codes.FailedPrecondition, codes.InvalidArgument, codes.Unavailable, codes.Aborted:
		return fmt.Errorf("%s", status.Convert(err).Message())
	default:
		return err
	}
}
