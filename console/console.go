// Package console moves an open PTY master to a container shim over a Unix
// domain socket, following the OCI runtime console-socket convention: one
// stream message with a one-byte body and a single SCM_RIGHTS record
// carrying the descriptor.
package console

import (
	"errors"
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// maxSunPath is how many bytes fit in sockaddr_un.sun_path on Linux,
// excluding the terminating NUL.
const maxSunPath = 107

var (
	// ErrPathTooLong means the console socket path does not fit in a
	// sockaddr_un address. The kernel would silently truncate it; we
	// refuse it before a socket is even created.
	ErrPathTooLong = errors.New("console socket path too long")

	// ErrNoFile means the received message carried no descriptor.
	ErrNoFile = errors.New("no descriptor in console message")

	// ErrTooManyFiles means the received message carried more than one
	// descriptor.
	ErrTooManyFiles = errors.New("more than one descriptor in console message")
)

// OpenTerminal opens the terminal device at path for reading and writing
// without making it the controlling terminal of the calling process.
func OpenTerminal(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, fmt.Errorf("cannot open pty: %w", err)
	}
	return f, nil
}

// DialConsole connects a stream socket to the console socket at path.
func DialConsole(path string) (*net.UnixConn, error) {
	if len(path) > maxSunPath {
		return nil, fmt.Errorf("%w: %d bytes, limit is %d", ErrPathTooLong, len(path), maxSunPath)
	}
	conn, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("cannot connect to console socket: %w", err)
	}
	return conn, nil
}

// SendFile transmits the open file over conn as a single message. The body
// is one zero byte: several Unix socket implementations refuse to deliver
// ancillary data attached to an empty payload, and the peer ignores its
// value. Sending does not close the local descriptor; the caller still owns
// its copy.
func SendFile(conn *net.UnixConn, file *os.File) error {
	oob := unix.UnixRights(int(file.Fd()))
	if _, _, err := conn.WriteMsgUnix([]byte{0}, oob, nil); err != nil {
		return fmt.Errorf("cannot send %s: %w", file.Name(), err)
	}
	return nil
}

// RecvFile reads one message from conn and returns the descriptor it
// carried as a file. The message must hold exactly one descriptor; on a
// malformed message every descriptor it did carry is closed before the
// error is returned.
func RecvFile(conn *net.UnixConn) (*os.File, error) {
	buf := make([]byte, 1)
	// room for two descriptors, so an over-stuffed record is seen rather
	// than truncated away
	oob := make([]byte, unix.CmsgSpace(2*4))
	n, oobn, flags, _, err := conn.ReadMsgUnix(buf, oob)
	if err != nil {
		return nil, fmt.Errorf("cannot receive console message: %w", err)
	}
	fds, err := parseRights(oob[:oobn])
	if err != nil {
		return nil, err
	}
	// the kernel installs the descriptors that fit in the buffer even when
	// it flags truncation, so they must be reclaimed before erroring out
	if flags&unix.MSG_CTRUNC != 0 {
		closeAll(fds)
		return nil, fmt.Errorf("%w: control data truncated", ErrTooManyFiles)
	}
	if n == 0 {
		closeAll(fds)
		return nil, errors.New("empty console message body")
	}
	switch len(fds) {
	case 0:
		return nil, ErrNoFile
	case 1:
		return os.NewFile(uintptr(fds[0]), "console"), nil
	default:
		closeAll(fds)
		return nil, fmt.Errorf("%w: got %d", ErrTooManyFiles, len(fds))
	}
}

// Send performs the whole handoff: open the PTY at ptyPath, connect to the
// console socket at socketPath and pass the descriptor to the peer. Both
// local descriptors are closed exactly once on every path, success or not.
func Send(socketPath, ptyPath string) error {
	pty, err := OpenTerminal(ptyPath)
	if err != nil {
		return err
	}
	defer pty.Close()

	conn, err := DialConsole(socketPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	return SendFile(conn, pty)
}

// parseRights extracts every descriptor carried in the control data. When a
// record cannot be parsed the descriptors extracted so far are closed.
func parseRights(oob []byte) ([]int, error) {
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, fmt.Errorf("cannot parse control message: %w", err)
	}
	var fds []int
	for i := range msgs {
		parsed, err := unix.ParseUnixRights(&msgs[i])
		if err != nil {
			closeAll(fds)
			return nil, fmt.Errorf("cannot parse descriptor rights: %w", err)
		}
		fds = append(fds, parsed...)
	}
	return fds, nil
}

func closeAll(fds []int) {
	for _, fd := range fds {
		_ = unix.Close(fd)
	}
}
