package mmio

// UART models the registers the reference platform's console path
// actually touches: a transmit-holding path (buffered, not written
// straight to stdout, so tests and the DEBUG-suppression rule can
// observe it without side effects) and a receive-holding queue a future
// instruction executor would drain on a character-available trap. This
// core never executes instructions, so nothing currently reads Recv; it
// exists so the host side (the interactive console) has somewhere to
// deliver keystrokes other than the guest's own output path.
type UART struct {
	LSR uint8
	IER uint8
	buf []byte
	out []byte
	rx  []byte
}

const (
	lsrTHRE = 1 << 5 // transmit holding register empty
	lsrTEMT = 1 << 6 // transmitter empty
)

// NewUART returns a UART with the transmitter idle, ready to accept bytes.
func NewUART() *UART {
	return &UART{LSR: lsrTHRE | lsrTEMT}
}

// WriteTHR buffers a transmitted byte, moving the pending line (terminated
// by '\n') to the output returned by Drain on '\n' or NUL.
func (u *UART) WriteTHR(b byte) {
	if b == '\n' || b == 0 {
		u.out = append(u.out, u.buf...)
		u.out = append(u.out, '\n')
		u.buf = u.buf[:0]
		return
	}
	u.buf = append(u.buf, b)
}

// Drain returns and clears everything written to the host side so far,
// including any partial unterminated line.
func (u *UART) Drain() []byte {
	if len(u.buf) > 0 {
		u.out = append(u.out, u.buf...)
		u.buf = u.buf[:0]
	}
	out := u.out
	u.out = nil
	return out
}

// Recv queues a host keystroke for the guest to eventually read. It is
// kept separate from the transmit path so host input never gets
// interleaved into the guest's own output stream.
func (u *UART) Recv(b byte) {
	u.rx = append(u.rx, b)
}
