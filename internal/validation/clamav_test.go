package validation

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"
)

// fakeClamd accepts one connection, consumes the INSTREAM framing, and writes
// the configured verdict. It returns the reassembled stream payload.
func fakeClamd(t *testing.T, verdict string) (addr string, payload chan []byte) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	payload = make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		cmd := make([]byte, len("zINSTREAM\x00"))
		if _, err := io.ReadFull(conn, cmd); err != nil {
			return
		}

		var body []byte
		var sizeBuf [4]byte
		for {
			if _, err := io.ReadFull(conn, sizeBuf[:]); err != nil {
				return
			}
			n := binary.BigEndian.Uint32(sizeBuf[:])
			if n == 0 {
				break
			}
			chunk := make([]byte, n)
			if _, err := io.ReadFull(conn, chunk); err != nil {
				return
			}
			body = append(body, chunk...)
		}
		payload <- body
		conn.Write([]byte(verdict + "\x00"))
	}()

	return ln.Addr().String(), payload
}

func TestClamAVScannerCleanVerdict(t *testing.T) {
	addr, payload := fakeClamd(t, "stream: OK")
	s := NewClamAVScanner(addr, 8, 5*time.Second)

	data := []byte("%PDF-1.4 some test bytes spanning multiple chunks")
	infected, sig, err := s.Scan(context.Background(), data)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if infected {
		t.Fatalf("clean stream reported infected (sig %q)", sig)
	}

	select {
	case got := <-payload:
		if string(got) != string(data) {
			t.Fatalf("daemon received %q, want %q", got, data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("daemon never received the full stream")
	}
}

func TestClamAVScannerInfectedVerdict(t *testing.T) {
	addr, _ := fakeClamd(t, "stream: Eicar-Test-Signature FOUND")
	s := NewClamAVScanner(addr, 1024, 5*time.Second)

	infected, sig, err := s.Scan(context.Background(), []byte("payload"))
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if !infected {
		t.Fatal("infected stream reported clean")
	}
	if sig != "Eicar-Test-Signature" {
		t.Fatalf("signature = %q, want Eicar-Test-Signature", sig)
	}
}

func TestClamAVScannerUnreachableDaemon(t *testing.T) {
	// Port 1 on localhost is assumed closed.
	s := NewClamAVScanner("127.0.0.1:1", 1024, 500*time.Millisecond)
	if _, _, err := s.Scan(context.Background(), []byte("x")); err == nil {
		t.Fatal("expected error for unreachable daemon")
	}
}
