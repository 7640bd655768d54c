// Package transport abstracts the byte stream a connection is built on top
// of, mirroring the tcp_transport/socket_transport split of the original
// implementation this package is modeled after: the frontend/backend
// message codec never touches a net.Conn directly, only a Transport.
package transport

import (
	"context"
	"crypto/tls"
	"net"
	"time"
)

// Transport is the byte stream a Conn's FSM writes frontend requests to and
// reads backend replies from. It is satisfied by a plain net.Conn and by
// the TLS-wrapped connection UpgradeTLS returns.
type Transport interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	SetDeadline(t time.Time) error
	// LocalAddr and RemoteAddr are surfaced for logging and for the
	// BackendKeyData-based cancel path, which needs the server's address.
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
}

// DialTCP opens a TCP transport to address ("host:port"). The dial is
// bound by ctx; once established, ctx no longer governs the connection's
// lifetime.
func DialTCP(ctx context.Context, address string) (Transport, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}

	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}

	return conn, nil
}

// DialUnix opens a transport over a Unix domain socket at path.
func DialUnix(ctx context.Context, path string) (Transport, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", path)
}

// UpgradeTLS performs a client-side TLS handshake over an already-dialed
// Transport and returns the wrapped connection. Used after the backend
// acknowledges an SSLRequest with a single 'S' byte.
func UpgradeTLS(ctx context.Context, conn Transport, config *tls.Config) (Transport, error) {
	tlsConn := tls.Client(netConnAdapter{conn}, config)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return nil, err
	}

	return tlsConn, nil
}

// netConnAdapter lets a Transport missing the remaining net.Conn methods
// (SetReadDeadline, SetWriteDeadline) satisfy tls.Client's net.Conn
// parameter; those two methods are never called by this client.
type netConnAdapter struct {
	Transport
}

func (netConnAdapter) SetReadDeadline(time.Time) error  { return nil }
func (netConnAdapter) SetWriteDeadline(time.Time) error { return nil }
