package validation

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

// ClamAVScanner streams a buffer to a clamd daemon over its INSTREAM protocol:
// a zINSTREAM command, then chunks each prefixed with a 4-byte big-endian
// length, terminated by a zero-length chunk. The daemon replies with a single
// NUL-terminated verdict line; an infected stream contains "FOUND".
//
// There is no clamd client in the module's dependency set; the protocol is a
// dozen lines of raw TCP framing, so it is implemented directly on net.Dialer.
type ClamAVScanner struct {
	addr      string
	chunkSize int
	timeout   time.Duration
}

func NewClamAVScanner(addr string, chunkSize int, timeout time.Duration) *ClamAVScanner {
	if chunkSize <= 0 {
		chunkSize = 32 * 1024
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ClamAVScanner{
		addr:      addr,
		chunkSize: chunkSize,
		timeout:   timeout,
	}
}

// Scan reports whether clamd flags the buffer, along with the signature name
// on a hit. A connection or protocol error means "scan unavailable", which the
// caller treats as a soft warning, not a verdict.
func (s *ClamAVScanner) Scan(ctx context.Context, data []byte) (bool, string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return false, "", fmt.Errorf("dial clamd at %s: %w", s.addr, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(s.timeout)
	if dl, ok := ctx.Deadline(); ok {
		deadline = dl
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return false, "", fmt.Errorf("set deadline: %w", err)
	}

	if _, err := conn.Write([]byte("zINSTREAM\x00")); err != nil {
		return false, "", fmt.Errorf("write command: %w", err)
	}

	var sizeBuf [4]byte
	for off := 0; off < len(data); off += s.chunkSize {
		end := off + s.chunkSize
		if end > len(data) {
			end = len(data)
		}
		chunk := data[off:end]
		binary.BigEndian.PutUint32(sizeBuf[:], uint32(len(chunk)))
		if _, err := conn.Write(sizeBuf[:]); err != nil {
			return false, "", fmt.Errorf("write chunk size: %w", err)
		}
		if _, err := conn.Write(chunk); err != nil {
			return false, "", fmt.Errorf("write chunk: %w", err)
		}
	}

	// Zero-length chunk terminates the stream.
	binary.BigEndian.PutUint32(sizeBuf[:], 0)
	if _, err := conn.Write(sizeBuf[:]); err != nil {
		return false, "", fmt.Errorf("write terminator: %w", err)
	}

	reply, err := io.ReadAll(conn)
	if err != nil {
		return false, "", fmt.Errorf("read verdict: %w", err)
	}

	verdict := strings.TrimSpace(string(bytes.TrimRight(reply, "\x00")))
	if strings.Contains(verdict, "FOUND") {
		return true, parseSignature(verdict), nil
	}
	return false, "", nil
}

// parseSignature extracts the signature name from a verdict like
// "stream: Eicar-Test-Signature FOUND".
func parseSignature(verdict string) string {
	sig := strings.TrimSuffix(verdict, "FOUND")
	if i := strings.Index(sig, ":"); i >= 0 {
		sig = sig[i+1:]
	}
	return strings.TrimSpace(sig)
}
