package com

import (
	"io"
	"sync"
	"time"
)

// NewInMemory returns a device that reads from an in-memory buffer, for tests and replays.
func NewInMemory() *InMemory {
	return &InMemory{
		closed: make(chan struct{}),
	}
}

type InMemory struct {
	lock           sync.Mutex
	readBuffer     []byte
	closed         chan struct{}
	closeOnce      sync.Once
	closeWhenEmpty bool
}

func (rw *InMemory) Close() error {
	rw.closeOnce.Do(func() {
		close(rw.closed)
	})
	return nil
}

func (rw *InMemory) WaitUntilClosed() {
	<-rw.closed
}

// Read blocks until data is available or the device is closed.
func (rw *InMemory) Read(p []byte) (int, error) {
	for {
		select {
		case <-rw.closed:
			return 0, io.EOF
		default:
		}

		rw.lock.Lock()
		if len(rw.readBuffer) > 0 {
			n := copy(p, rw.readBuffer)
			rw.readBuffer = rw.readBuffer[n:]
			empty := len(rw.readBuffer) == 0
			closeWhenEmpty := rw.closeWhenEmpty
			rw.lock.Unlock()
			if empty && closeWhenEmpty {
				rw.Close()
			}
			return n, nil
		}
		rw.lock.Unlock()

		select {
		case <-rw.closed:
			return 0, io.EOF
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func (rw *InMemory) PrepareRead(p []byte) {
	rw.lock.Lock()
	defer rw.lock.Unlock()

	rw.readBuffer = append(rw.readBuffer, p...)
}

func (rw *InMemory) IsReadEmpty() bool {
	rw.lock.Lock()
	defer rw.lock.Unlock()

	return len(rw.readBuffer) == 0
}

// CloseWhenEmpty lets the device report EOF as soon as all prepared data has been read.
func (rw *InMemory) CloseWhenEmpty(value bool) {
	rw.lock.Lock()
	defer rw.lock.Unlock()

	rw.closeWhenEmpty = value
}
