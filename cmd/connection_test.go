// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

// scriptedConn replays a fixed sequence of reads
type scriptedConn struct {
	reads []scriptedRead
	calls int
}

type scriptedRead struct {
	data []byte
	err  error
}

func (c *scriptedConn) Read(p []byte) (int, error) {
	c.calls++
	if len(c.reads) == 0 {
		return 0, io.EOF
	}
	r := c.reads[0]
	c.reads = c.reads[1:]
	return copy(p, r.data), r.err
}

func (c *scriptedConn) Write(p []byte) (int, error) { return len(p), nil }
func (c *scriptedConn) Close() error                { return nil }

func quietLogger(t *testing.T) {
	t.Helper()
	prev := logger
	logger = logrus.New()
	logger.SetOutput(io.Discard)
	t.Cleanup(func() { logger = prev })
}

func runReadLoop(t *testing.T, conn Connection) ([]byte, error) {
	t.Helper()
	out := make(chan []byte, 16)
	stop := make(chan struct{})
	defer close(stop)

	done := make(chan error, 1)
	go func() {
		done <- readLoop(conn, out, stop)
	}()

	var got []byte
	for {
		select {
		case chunk := <-out:
			got = append(got, chunk...)
		case err := <-done:
			for {
				select {
				case chunk := <-out:
					got = append(got, chunk...)
				default:
					return got, err
				}
			}
		case <-time.After(5 * time.Second):
			t.Fatal("readLoop did not return")
		}
	}
}

func TestReadLoop_EOFEndsLoop(t *testing.T) {
	quietLogger(t)
	conn := &scriptedConn{reads: []scriptedRead{
		{data: []byte("\r\nV\t12800")},
		{err: io.EOF},
		{data: []byte("never read")},
	}}

	got, err := runReadLoop(t, conn)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	if string(got) != "\r\nV\t12800" {
		t.Errorf("got %q", got)
	}
	if conn.calls != 2 {
		t.Errorf("expected 2 reads, got %d", conn.calls)
	}
}

func TestReadLoop_ClosedConnectionEndsLoop(t *testing.T) {
	quietLogger(t)
	conn := &scriptedConn{reads: []scriptedRead{
		{err: ErrConnectionClosed},
	}}

	if _, err := runReadLoop(t, conn); !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("expected ErrConnectionClosed, got %v", err)
	}
}

func TestReadLoop_TransientErrorsRetryWithBackoff(t *testing.T) {
	quietLogger(t)
	conn := &scriptedConn{reads: []scriptedRead{
		{err: errors.New("framing error")},
		{err: errors.New("framing error")},
		{data: []byte("PPV\t30")},
	}}

	start := time.Now()
	got, err := runReadLoop(t, conn)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after the script, got %v", err)
	}
	if string(got) != "PPV\t30" {
		t.Errorf("got %q", got)
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("retries did not back off (%v)", elapsed)
	}
}
