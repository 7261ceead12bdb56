package main

import (
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"

	"rvcore/hart"
)

// console reads raw stdin, echoes it locally (raw mode disables the
// terminal's own echo), and queues each byte on the hart's UART receive
// path. It periodically drains the UART's transmit buffer and the tohost
// character-device buffer to stdout.
// Only constructed under -interactive; never used in tests.
type console struct {
	h            *hart.Hart
	stopCh       chan struct{}
	done         chan struct{}
	stopped      sync.Once
	fd           int
	nonblockSet  bool
	oldTermState *term.State
}

func newConsole(h *hart.Hart) *console {
	return &console{h: h, stopCh: make(chan struct{}), done: make(chan struct{})}
}

func (c *console) start() {
	c.fd = int(os.Stdin.Fd())

	oldState, err := term.MakeRaw(c.fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "console: failed to set raw mode: %v\n", err)
		close(c.done)
		return
	}
	c.oldTermState = oldState

	if err := syscall.SetNonblock(c.fd, true); err != nil {
		fmt.Fprintf(os.Stderr, "console: failed to set nonblocking stdin: %v\n", err)
		_ = term.Restore(c.fd, c.oldTermState)
		c.oldTermState = nil
		close(c.done)
		return
	}
	c.nonblockSet = true

	go func() {
		defer close(c.done)
		buf := make([]byte, 1)
		for {
			select {
			case <-c.stopCh:
				return
			default:
			}
			n, err := syscall.Read(c.fd, buf)
			if n > 0 {
				b := buf[0]
				if b == '\r' {
					b = '\n'
				}
				c.h.UART.Recv(b)
				os.Stdout.Write([]byte{b})
			}
			if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			if err != nil {
				return
			}
			if n == 0 {
				time.Sleep(5 * time.Millisecond)
			}
		}
	}()
}

func (c *console) stop() {
	c.stopped.Do(func() { close(c.stopCh) })
	<-c.done
	if c.nonblockSet {
		_ = syscall.SetNonblock(c.fd, false)
		c.nonblockSet = false
	}
	if c.oldTermState != nil {
		_ = term.Restore(c.fd, c.oldTermState)
		c.oldTermState = nil
	}
}

func (c *console) printOutput() {
	if tx := c.h.UART.Drain(); len(tx) > 0 {
		os.Stdout.Write(tx)
	}
	out := c.h.DrainHostOutput()
	if len(out) > 0 {
		os.Stdout.Write(out)
	}
}
