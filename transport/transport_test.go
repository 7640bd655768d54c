package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDialTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		buf := make([]byte, 5)
		_, _ = conn.Read(buf)
		_, _ = conn.Write(buf)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	tr, err := DialTCP(ctx, ln.Addr().String())
	assert.NoError(t, err)
	defer tr.Close()

	_, err = tr.Write([]byte("hello"))
	assert.NoError(t, err)

	buf := make([]byte, 5)
	assert.NoError(t, tr.SetDeadline(time.Now().Add(2*time.Second)))
	n, err := tr.Read(buf)
	assert.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))
}

func TestDialTCPRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NoError(t, err)
	addr := ln.Addr().String()
	assert.NoError(t, ln.Close())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err = DialTCP(ctx, addr)
	assert.Error(t, err)
}
