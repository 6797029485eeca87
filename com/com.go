package com

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

const readBufferSize = 1024

// LineHandler is called for every non-empty line that is read from the device.
type LineHandler func(line string)

// NewWithTrace creates a new session that traces all received lines to a second writer.
func NewWithTrace(device io.Reader, tracer io.Writer, handler LineHandler) *Session {
	return newSession(device, tracer, handler)
}

// New creates a new session that reads hex encoded messages line by line from the given device,
// e.g. stdin, a log file or the trace port of a terminal, and passes every line to the handler.
// The handler is called sequentially from the session's goroutine.
func New(device io.Reader, handler LineHandler) *Session {
	return newSession(device, nil, handler)
}

func newSession(device io.Reader, tracer io.Writer, handler LineHandler) *Session {
	result := &Session{
		closed: make(chan struct{}),
		stop:   make(chan struct{}),
		tracer: tracer,
	}
	failure := make(chan error, 1)
	lines := readLoop(device, result.stop, func(err error) {
		failure <- err
	})

	go func() {
		defer close(result.closed)
		result.trace("****\n* SESSION START\n****\n")
		defer result.trace("****\n* SESSION END\n****\n")

		for {
			var line string
			var valid bool
			select {
			case <-result.stop:
				return
			case line, valid = <-lines:
			}
			if !valid {
				select {
				case result.err = <-failure:
				default:
				}
				return
			}
			if result.stopped() {
				return
			}
			result.tracef("rx:  %s\n--\n", line)
			result.count++
			handler(line)
		}
	}()

	return result
}

// Session reads messages from a device until the device is closed, returns an error or the
// session is stopped.
type Session struct {
	closed   chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	tracer   io.Writer
	err      error
	count    int
}

// readLoop splits the data read from r into lines. Control characters are dropped, lines that
// start with # are comments. The loop ends early when stop is closed.
func readLoop(r io.Reader, stop <-chan struct{}, fail func(error)) <-chan string {
	lines := make(chan string, 1)
	go func() {
		defer close(lines)
		buf := make([]byte, readBufferSize)
		currentLine := make([]byte, 0, readBufferSize)
		flush := func() bool {
			line := strings.TrimSpace(string(currentLine))
			currentLine = currentLine[:0]
			if line == "" || strings.HasPrefix(line, "#") {
				return true
			}
			select {
			case lines <- line:
				return true
			case <-stop:
				return false
			}
		}

		for {
			n, err := r.Read(buf)
			for _, b := range buf[0:n] {
				switch {
				case b == '\n':
					if !flush() {
						return
					}
				case b < ' ' && b != '\t':
					continue
				default:
					currentLine = append(currentLine, b)
				}
			}
			if err != nil {
				if !flush() {
					return
				}
				if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
					fail(err)
				}
				return
			}
		}
	}()
	return lines
}

// Closed reports if the session has ended.
func (s *Session) Closed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// Wait blocks until the session has ended or the context is done. It returns the read error that
// ended the session, if any.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.closed:
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop ends the session after the line that is currently handled and waits until the handler
// has returned. No more lines are passed to the handler afterwards. A blocking read on the device
// is not interrupted, close the device to release it.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	<-s.closed
}

func (s *Session) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

// Count returns the number of lines that were passed to the handler. It is only accurate after the
// session has ended.
func (s *Session) Count() int {
	select {
	case <-s.closed:
		return s.count
	default:
		return 0
	}
}

func (s *Session) trace(args ...any) {
	if s.tracer == nil {
		return
	}
	fmt.Fprint(s.tracer, args...)
}

func (s *Session) tracef(format string, args ...any) {
	if s.tracer == nil {
		return
	}
	fmt.Fprintf(s.tracer, format, args...)
}
