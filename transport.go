// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package ilo

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"
)

// Transport performs one request/response exchange with the management processor
//
// Implementations open a fresh connection per call and never retry. Errors
// must be *IloError values of kind ConnectionError, TransmitError or
// NoResponseError.
type Transport interface {
	Send(ctx context.Context, doc []byte, host string, port int, timeout time.Duration) ([]byte, error)
}

// readChunkSize is the buffer size for reading responses
const readChunkSize = 4096

// TLSTransport sends each request over a new TLS connection
type TLSTransport struct {
	// Config is cloned for every connection; ServerName defaults to the host
	Config *tls.Config

	// ConnectTimeout bounds TCP connect and TLS handshake
	ConnectTimeout time.Duration
}

// Send dials host:port, writes doc, and reads until the peer closes the
// connection or timeout elapses
//
// Bytes received before a timeout or a reset are returned as the response.
func (t *TLSTransport) Send(ctx context.Context, doc []byte, host string, port int, timeout time.Duration) ([]byte, error) {
	address := net.JoinHostPort(host, strconv.Itoa(port))

	cfg := &tls.Config{}
	if t.Config != nil {
		cfg = t.Config.Clone()
	}
	if cfg.ServerName == "" && !cfg.InsecureSkipVerify {
		cfg.ServerName = host
	}

	connectTimeout := t.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = timeout
	}
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: connectTimeout},
		Config:    cfg,
	}

	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, newError("", ConnectionError,
			fmt.Sprintf("cannot connect to %s: %s", address, err), err)
	}
	defer conn.Close() //nolint:errcheck // response already read or call failed

	if timeout > 0 {
		deadline := time.Now().Add(timeout)
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, newError("", ConnectionError, "cannot set deadline: "+err.Error(), err)
		}
	}

	if _, err := conn.Write(doc); err != nil {
		return nil, newError("", TransmitError,
			fmt.Sprintf("cannot send request to %s: %s", address, err), err)
	}

	var buf bytes.Buffer
	chunk := make([]byte, readChunkSize)
	for {
		n, err := conn.Read(chunk)
		buf.Write(chunk[:n])
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) || buf.Len() > 0 {
			break
		}
		return nil, newError("", NoResponseError,
			fmt.Sprintf("no response from %s: %s", address, err), err)
	}

	if buf.Len() == 0 {
		return nil, newError("", NoResponseError,
			fmt.Sprintf("no response from %s: connection closed without data", address), nil)
	}
	return buf.Bytes(), nil
}
