package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/ib-77/railyard/pkg/rop"
)

const (
	DefaultMaxBytes = 1024

	// ClosedByPeer is the payload of a read that found the connection closed.
	ClosedByPeer = "connection closed by peer"
)

type SocketRequest struct {
	Addr     string `yaml:"addr"`
	MaxBytes int    `yaml:"max_bytes"`
}

// SocketReader dials an address and performs a single read.
type SocketReader struct {
	Dialer *net.Dialer
}

// Read returns up to MaxBytes of whatever the peer sends first. Invalid UTF-8
// is replaced rather than rejected. A read cut short by ctx returns ctx's
// error.
func (r SocketReader) Read(ctx context.Context, req SocketRequest) (string, error) {
	d := r.Dialer
	if d == nil {
		d = &net.Dialer{}
	}

	conn, err := d.DialContext(ctx, "tcp", req.Addr)
	if err != nil {
		if ctxErr := rop.ContextErr(ctx); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("dial %s: %w", req.Addr, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	size := req.MaxBytes
	if size <= 0 {
		size = DefaultMaxBytes
	}
	buf := make([]byte, size)

	n, err := conn.Read(buf)
	switch {
	case n > 0:
		return strings.ToValidUTF8(string(buf[:n]), "\uFFFD"), nil
	case err == nil || errors.Is(err, io.EOF):
		return ClosedByPeer, nil
	case rop.ContextErr(ctx) != nil:
		return "", ctx.Err()
	default:
		return "", fmt.Errorf("read error: %w", err)
	}
}
