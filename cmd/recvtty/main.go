// Command recvtty is the peer side of the sendtty handoff. It listens on a
// console socket, accepts a single connection, extracts the PTY descriptor
// from the SCM_RIGHTS message and either bridges the terminal to its own
// stdio (proxy mode) or holds it open and discards output (null mode).
package main

import (
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sendtty/console"
)

var (
	mode    string
	timeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "recvtty [socket-path]",
	Short:         "Receive a PTY descriptor over a console socket",
	Args:          cobra.MaximumNArgs(1),
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&mode, "mode", "proxy", `"proxy" bridges the terminal to stdio, "null" discards it`)
	rootCmd.Flags().DurationVar(&timeout, "timeout", 0, "give up when no connection arrives in time (0 waits forever)")
}

func run(cmd *cobra.Command, args []string) error {
	path := filepath.Join(os.TempDir(), uuid.New().String()+".sock")
	if len(args) == 1 {
		path = args[0]
	}
	if mode != "proxy" && mode != "null" {
		return fmt.Errorf("unknown mode %q", mode)
	}

	master, err := receive(path)
	if err != nil {
		return err
	}
	defer master.Close()

	logrus.WithField("path", path).Info("received terminal")

	if mode == "null" {
		_, err := io.Copy(io.Discard, master)
		return err
	}
	return proxy(master)
}

func receive(path string) (*os.File, error) {
	listener, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("cannot listen on console socket: %w", err)
	}
	defer listener.Close()

	logrus.WithField("path", path).Info("waiting for a connection")

	if timeout > 0 {
		if err := listener.SetDeadline(time.Now().Add(timeout)); err != nil {
			return nil, fmt.Errorf("cannot set accept deadline: %w", err)
		}
	}
	conn, err := listener.AcceptUnix()
	if err != nil {
		return nil, fmt.Errorf("cannot accept connection: %w", err)
	}
	defer conn.Close()

	return console.RecvFile(conn)
}

// proxy copies bytes between the received terminal and stdio until the
// terminal side closes. Stdin is switched to raw mode while bridging so
// control characters reach the container instead of the local shell.
func proxy(master *os.File) error {
	if console.Isatty(os.Stdin) {
		saved, err := console.Attr(os.Stdin)
		if err != nil {
			return fmt.Errorf("cannot read stdin attributes: %w", err)
		}
		raw := saved
		raw.Raw()
		if err := raw.Set(os.Stdin); err != nil {
			return fmt.Errorf("cannot set stdin to raw mode: %w", err)
		}
		defer saved.Set(os.Stdin)
	}

	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(os.Stdout, master)
		done <- err
	}()
	go func() {
		_, _ = io.Copy(master, os.Stdin)
	}()
	return <-done
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}
