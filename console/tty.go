package console

import (
	"os"

	"github.com/pkg/term/termios"
	"github.com/tliron/commonlog"
	"golang.org/x/sys/unix"
)

var log = commonlog.GetLogger("femto.console")

// TTY is a Console over the controlling terminal in raw mode: no line
// buffering, no echo. A reader goroutine pumps stdin into a buffered
// channel so Poll never blocks the event loop.
type TTY struct {
	original unix.Termios
	keys     chan byte
	done     chan struct{}
}

// OpenTTY switches the terminal to raw mode and starts the reader.
// Close restores the terminal.
func OpenTTY() (*TTY, error) {
	t := &TTY{
		keys: make(chan byte, 64),
		done: make(chan struct{}),
	}
	if err := termios.Tcgetattr(os.Stdin.Fd(), &t.original); err != nil {
		return nil, err
	}
	raw := t.original
	raw.Lflag &^= unix.ICANON | unix.ECHO
	if err := termios.Tcsetattr(os.Stdin.Fd(), termios.TCSANOW, &raw); err != nil {
		return nil, err
	}
	log.Debug("terminal switched to raw mode")
	go t.reader()
	return t, nil
}

func (t *TTY) reader() {
	buf := make([]byte, 1)
	for {
		select {
		case <-t.done:
			return
		default:
		}
		n, err := os.Stdin.Read(buf)
		if err != nil || n == 0 {
			continue
		}
		select {
		case t.keys <- buf[0]:
		case <-t.done:
			return
		}
	}
}

func (t *TTY) Poll() (byte, bool) {
	select {
	case b := <-t.keys:
		// Echo so the operator sees what they type.
		if b == '\r' || b == '\n' {
			os.Stdout.Write([]byte("\n"))
		} else {
			os.Stdout.Write([]byte{b})
		}
		return b, true
	default:
		return 0, false
	}
}

func (t *TTY) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

// Close stops the reader and restores the terminal attributes.
func (t *TTY) Close() error {
	close(t.done)
	log.Debug("restoring terminal attributes")
	return termios.Tcsetattr(os.Stdin.Fd(), termios.TCSANOW, &t.original)
}
