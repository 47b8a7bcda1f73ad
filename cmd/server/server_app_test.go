package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"

	apiv1 "github.com/SanjoDeundiak/server-supervisor/api/v1"
	"github.com/SanjoDeundiak/server-supervisor/pkg/lib"
	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/config"
	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/logging"
)

type testCA struct {
	cert *x509.Certificate
	key  *ecdsa.PrivateKey
	pem  []byte
}

var certSerial int64

func newTestCA(t *testing.T) *testCA {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	certSerial++
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(certSerial),
		Subject:               pkix.Name{CommonName: "gsv test ca"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return &testCA{cert: cert, key: key, pem: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})}
}

// issue signs a leaf. An empty spiffeHost makes a server certificate.
func (ca *testCA) issue(t *testing.T, spiffeHost string) (certPEM, keyPEM []byte) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	certSerial++
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(certSerial),
		Subject:      pkix.Name{CommonName: "gsv test leaf"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	if spiffeHost == "" {
		tmpl.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth}
		tmpl.DNSNames = []string{"localhost"}
		tmpl.IPAddresses = []net.IP{net.ParseIP("127.0.0.1")}
	} else {
		tmpl.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth}
		tmpl.URIs = []*url.URL{{Scheme: "spiffe", Host: spiffeHost, Path: "/gsv"}}
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, ca.cert, &key.PublicKey, ca.key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
}

// startTLSServer serves a fake controller over mTLS signed by ca.
func startTLSServer(t *testing.T, ca *testCA, auth config.AuthConfig) (string, *fakeController) {
	t.Helper()
	certPEM, keyPEM := ca.issue(t, "")
	t.Setenv("GSV_TLS_CERT", string(certPEM))
	t.Setenv("GSV_TLS_KEY", string(keyPEM))
	t.Setenv("GSV_CA_TLS_CERT", string(ca.pem))

	ctrl := &fakeController{}
	srv, err := NewGRPCServer("127.0.0.1:0", NewSupervisorServiceServer(ctrl, auth, logging.Discard()))
	require.NoError(t, err)
	go func() { _ = srv.Serve() }()
	t.Cleanup(srv.GracefulStop)

	return srv.Addr().String(), ctrl
}

func dialTLS(t *testing.T, addr string, serverCA *testCA, client *tls.Certificate) apiv1.SupervisorServiceClient {
	t.Helper()
	pool := x509.NewCertPool()
	pool.AddCert(serverCA.cert)

	cfg := &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS13}
	if client != nil {
		cfg.Certificates = []tls.Certificate{*client}
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(credentials.NewTLS(cfg)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return apiv1.NewSupervisorServiceClient(conn)
}

func clientCert(t *testing.T, ca *testCA, operator string) *tls.Certificate {
	t.Helper()
	certPEM, keyPEM := ca.issue(t, operator)
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	require.NoError(t, err)
	return &cert
}

func TestServerApp_RequiresTLSEnv(t *testing.T) {
	t.Setenv("GSV_TLS_KEY", "")
	t.Setenv("GSV_TLS_CERT", "")
	t.Setenv("GSV_CA_TLS_CERT", "")

	_, err := NewGRPCServer("127.0.0.1:0", NewSupervisorServiceServer(&fakeController{}, config.AuthConfig{}, logging.Discard()))
	assert.ErrorContains(t, err, "GSV_TLS_KEY")
}

func TestServerApp_ServerExpectsTls(t *testing.T) {
	addr, _ := startTLSServer(t, newTestCA(t), config.AuthConfig{})

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	_, err = apiv1.NewSupervisorServiceClient(conn).Status(t.Context(), &emptypb.Empty{})
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestServerApp_ServerExpectsClientCert(t *testing.T) {
	ca := newTestCA(t)
	addr, _ := startTLSServer(t, ca, config.AuthConfig{})

	_, err := dialTLS(t, addr, ca, nil).Status(t.Context(), &emptypb.Empty{})
	assert.Error(t, err)
}

func TestServerApp_ServerExpectCorrectClientCa(t *testing.T) {
	ca := newTestCA(t)
	addr, _ := startTLSServer(t, ca, config.AuthConfig{})

	_, err := dialTLS(t, addr, ca, clientCert(t, newTestCA(t), "ops1")).Status(t.Context(), &emptypb.Empty{})
	assert.Error(t, err)
}

func TestServerApp_ClientExpectsCorrectServerCa(t *testing.T) {
	ca := newTestCA(t)
	addr, _ := startTLSServer(t, ca, config.AuthConfig{})

	_, err := dialTLS(t, addr, newTestCA(t), clientCert(t, ca, "ops1")).Status(t.Context(), &emptypb.Empty{})
	assert.Error(t, err)
}

func TestServerApp_OperatorFromCertificate(t *testing.T) {
	ca := newTestCA(t)
	addr, ctrl := startTLSServer(t, ca, config.AuthConfig{AllowedOperators: []string{"ops1"}})

	resp, err := dialTLS(t, addr, ca, clientCert(t, ca, "ops1")).Start(t.Context(), &emptypb.Empty{})
	require.NoError(t, err)
	st, err := apiv1.StatusFromProto(resp)
	require.NoError(t, err)
	assert.Equal(t, lib.StateStarting, st.State)
	assert.Equal(t, lib.StateStarting, ctrl.Status().State)

	_, err = dialTLS(t, addr, ca, clientCert(t, ca, "ops2")).Stop(t.Context(), &emptypb.Empty{})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestServerApp_GracefulStopEndsServe(t *testing.T) {
	ca := newTestCA(t)
	certPEM, keyPEM := ca.issue(t, "")
	t.Setenv("GSV_TLS_CERT", string(certPEM))
	t.Setenv("GSV_TLS_KEY", string(keyPEM))
	t.Setenv("GSV_CA_TLS_CERT", string(ca.pem))

	srv, err := NewGRPCServer("127.0.0.1:0", NewSupervisorServiceServer(&fakeController{}, config.AuthConfig{}, logging.Discard()))
	require.NoError(t, err)

	served := make(chan error, 1)
	go func() { served <- srv.Serve() }()

	srv.GracefulStop()
	select {
	case err := <-served:
		// Serve may not have started yet, in which case it refuses to run
		if err != nil {
			assert.ErrorIs(t, err, grpc.ErrServerStopped)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after GracefulStop")
	}
}
