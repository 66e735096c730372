package console

import (
	"os"

	"golang.org/x/sys/unix"
)

// Termios holds terminal attributes.
type Termios struct {
	unix.Termios
}

// Attr reads the terminal attributes of file.
func Attr(file *os.File) (Termios, error) {
	t, err := unix.IoctlGetTermios(int(file.Fd()), unix.TCGETS)
	if err != nil {
		return Termios{}, err
	}
	return Termios{*t}, nil
}

// Set applies the attributes to file.
func (t Termios) Set(file *os.File) error {
	return unix.IoctlSetTermios(int(file.Fd()), unix.TCSETS, &t.Termios)
}

// Raw switches the attributes to raw mode so every byte passes through
// unprocessed and unechoed.
func (t *Termios) Raw() {
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB
	t.Cflag |= unix.CS8
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
}

// Isatty reports whether file refers to a terminal.
func Isatty(file *os.File) bool {
	_, err := Attr(file)
	return err == nil
}
