// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package ilo

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http/httptest"
	"testing"
	"time"
)

// testCertificate returns the self-signed certificate httptest uses
func testCertificate(t *testing.T) tls.Certificate {
	t.Helper()
	srv := httptest.NewUnstartedServer(nil)
	srv.StartTLS()
	defer srv.Close()
	return srv.TLS.Certificates[0]
}

// ribclServer is a loopback TLS listener that handles one connection per call
type ribclServer struct {
	listener net.Listener
	requests chan []byte
}

// startServer listens on loopback and runs handle for every connection
func startServer(t *testing.T, handle func(conn net.Conn, request []byte)) *ribclServer {
	t.Helper()
	cfg := &tls.Config{Certificates: []tls.Certificate{testCertificate(t)}}
	l, err := tls.Listen("tcp", "127.0.0.1:0", cfg)
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	s := &ribclServer{listener: l, requests: make(chan []byte, 16)}
	t.Cleanup(func() { _ = l.Close() })

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close() //nolint:errcheck // test server
				request := readRequest(conn)
				s.requests <- request
				handle(conn, request)
			}()
		}
	}()
	return s
}

// readRequest reads until the closing RIBCL tag
func readRequest(conn net.Conn) []byte {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var buf bytes.Buffer
	chunk := make([]byte, 512)
	for !bytes.Contains(buf.Bytes(), []byte("</RIBCL>")) {
		n, err := conn.Read(chunk)
		buf.Write(chunk[:n])
		if err != nil {
			break
		}
	}
	return buf.Bytes()
}

func (s *ribclServer) port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

func insecureTransport() *TLSTransport {
	return &TLSTransport{
		Config:         &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // self-signed test certificate
		ConnectTimeout: 5 * time.Second,
	}
}

// TestTLSTransport_RoundTrip tests a complete exchange
func TestTLSTransport_RoundTrip(t *testing.T) {
	reply := okReply(`<GET_HOST_POWER_STATUS HOST_POWER="ON"/>`)
	srv := startServer(t, func(conn net.Conn, _ []byte) {
		_, _ = conn.Write([]byte(reply))
	})

	doc, err := BuildEnvelope("power_status", "admin", "secret", DialectLegacy, nil)
	if err != nil {
		t.Fatal(err)
	}

	got, err := insecureTransport().Send(context.Background(), []byte(doc), "127.0.0.1", srv.port(), 5*time.Second)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if string(got) != reply {
		t.Errorf("response = %q, want %q", got, reply)
	}
	if req := <-srv.requests; string(req) != doc {
		t.Errorf("server received %q, want %q", req, doc)
	}
}

// TestTLSTransport_PartialResponse verifies bytes are returned without a terminator
func TestTLSTransport_PartialResponse(t *testing.T) {
	partial := `<RIBCL VERSION="2.23"><RESPONSE STATUS="0x0000"`
	srv := startServer(t, func(conn net.Conn, _ []byte) {
		_, _ = conn.Write([]byte(partial))
	})

	got, err := insecureTransport().Send(context.Background(), []byte("<RIBCL></RIBCL>"), "127.0.0.1", srv.port(), 5*time.Second)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if string(got) != partial {
		t.Errorf("response = %q, want %q", got, partial)
	}
}

// TestTLSTransport_TimeoutAfterData verifies received bytes survive a read timeout
func TestTLSTransport_TimeoutAfterData(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	srv := startServer(t, func(conn net.Conn, _ []byte) {
		_, _ = conn.Write([]byte("<RIBCL>"))
		<-release
	})

	start := time.Now()
	got, err := insecureTransport().Send(context.Background(), []byte("<RIBCL></RIBCL>"), "127.0.0.1", srv.port(), 300*time.Millisecond)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if string(got) != "<RIBCL>" {
		t.Errorf("response = %q", got)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout not applied, took %v", elapsed)
	}
}

// TestTLSTransport_NoResponse verifies zero-byte replies fail
func TestTLSTransport_NoResponse(t *testing.T) {
	t.Run("closed without data", func(t *testing.T) {
		srv := startServer(t, func(net.Conn, []byte) {})

		_, err := insecureTransport().Send(context.Background(), []byte("<RIBCL></RIBCL>"), "127.0.0.1", srv.port(), 5*time.Second)
		if KindOf(err) != NoResponseError {
			t.Errorf("expected NoResponseError, got %v", err)
		}
	})

	t.Run("timeout without data", func(t *testing.T) {
		release := make(chan struct{})
		t.Cleanup(func() { close(release) })
		srv := startServer(t, func(net.Conn, []byte) { <-release })

		_, err := insecureTransport().Send(context.Background(), []byte("<RIBCL></RIBCL>"), "127.0.0.1", srv.port(), 200*time.Millisecond)
		if KindOf(err) != NoResponseError {
			t.Errorf("expected NoResponseError, got %v", err)
		}
	})
}

// TestTLSTransport_TransmitError verifies a peer that resets the connection
// after the handshake fails the write
func TestTLSTransport_TransmitError(t *testing.T) {
	cfg := &tls.Config{Certificates: []tls.Certificate{testCertificate(t)}}
	l, err := tls.Listen("tcp", "127.0.0.1:0", cfg)
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })

	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		tc := conn.(*tls.Conn)
		_ = tc.Handshake()
		if tcp, ok := tc.NetConn().(*net.TCPConn); ok {
			_ = tcp.SetLinger(0)
		}
		_ = tc.NetConn().Close()
	}()

	// Far larger than the loopback socket buffers, so the write cannot
	// complete before the reset arrives
	doc := bytes.Repeat([]byte("<RIBCL/>"), 8<<20)
	port := l.Addr().(*net.TCPAddr).Port

	resp, err := insecureTransport().Send(context.Background(), doc, "127.0.0.1", port, 10*time.Second)
	if err == nil {
		t.Fatalf("expected error, got %d response bytes", len(resp))
	}
	if KindOf(err) != TransmitError {
		t.Errorf("expected TransmitError, got %v", err)
	}
}

// TestTLSTransport_ConnectionErrors tests dial and handshake failures
func TestTLSTransport_ConnectionErrors(t *testing.T) {
	t.Run("refused", func(t *testing.T) {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		port := l.Addr().(*net.TCPAddr).Port
		_ = l.Close()

		_, err = insecureTransport().Send(context.Background(), []byte("<RIBCL/>"), "127.0.0.1", port, time.Second)
		if KindOf(err) != ConnectionError {
			t.Fatalf("expected ConnectionError, got %v", err)
		}
		var ie *IloError
		if errors.As(err, &ie) && ie.Err == nil {
			t.Error("expected underlying transport error")
		}
	})

	t.Run("not tls", func(t *testing.T) {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = l.Close() })
		go func() {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			_, _ = conn.Write([]byte("HTTP/1.0 400 Bad Request\r\n\r\n"))
			_ = conn.Close()
		}()

		_, err = insecureTransport().Send(context.Background(), []byte("<RIBCL/>"), "127.0.0.1", l.Addr().(*net.TCPAddr).Port, time.Second)
		if KindOf(err) != ConnectionError {
			t.Errorf("expected ConnectionError, got %v", err)
		}
	})

	t.Run("certificate verification", func(t *testing.T) {
		srv := startServer(t, func(net.Conn, []byte) {})
		tr := &TLSTransport{Config: &tls.Config{MinVersion: tls.VersionTLS12}, ConnectTimeout: time.Second}

		_, err := tr.Send(context.Background(), []byte("<RIBCL/>"), "127.0.0.1", srv.port(), time.Second)
		if KindOf(err) != ConnectionError {
			t.Errorf("expected ConnectionError for untrusted certificate, got %v", err)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		srv := startServer(t, func(net.Conn, []byte) {})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := insecureTransport().Send(ctx, []byte("<RIBCL/>"), "127.0.0.1", srv.port(), time.Second)
		if KindOf(err) != ConnectionError {
			t.Errorf("expected ConnectionError, got %v", err)
		}
	})
}

// TestClient_OverTLS runs Execute through the default transport
func TestClient_OverTLS(t *testing.T) {
	srv := startServer(t, func(conn net.Conn, request []byte) {
		if bytes.Contains(request, []byte("<GET_HOST_POWER_STATUS/>")) {
			_, _ = conn.Write([]byte(okReply(`<GET_HOST_POWER_STATUS POWER="ON"/>`)))
			return
		}
		_, _ = conn.Write([]byte(failReply("0x0001", "Syntax error")))
	})

	client, err := NewClient("127.0.0.1",
		Port(srv.port()),
		Username("admin"),
		Password("secret"),
		WithDialect(DialectCurrent),
		ConnectTimeout(5*time.Second),
		ReadTimeout(5*time.Second),
	)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	res, err := client.Execute(context.Background(), "power_status", nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.Value() != "on" {
		t.Errorf("Value() = %q, want on", res.Value())
	}

	req := <-srv.requests
	if !bytes.Contains(req, []byte(`PASSWORD="secret"`)) || !bytes.Contains(req, []byte(`VERSION="2.23"`)) {
		t.Errorf("unexpected request: %s", req)
	}
}
