package cmd

import (
	"bytes"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/google/uuid"

	"sendtty/console"
)

func TestUsageErrors(t *testing.T) {
	for _, args := range [][]string{
		{},
		{"/tmp/console.sock"},
		{"/tmp/console.sock", "/dev/pts/0", "extra"},
	} {
		var stderr bytes.Buffer
		rootCmd.SetArgs(args)
		rootCmd.SetOut(&stderr)
		rootCmd.SetErr(&stderr)
		if err := rootCmd.Execute(); err == nil {
			t.Fatalf("expected a usage error for %d args", len(args))
		}
		if !strings.Contains(stderr.String(), "Usage:") {
			t.Fatalf("no usage message printed for %d args, got %q", len(args), stderr.String())
		}
	}
}

func TestRootSendsDescriptor(t *testing.T) {
	path := filepath.Join(os.TempDir(), uuid.New().String()+".sock")
	defer os.Remove(path)
	listener, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()

	master, slave, err := pty.Open()
	if err != nil {
		t.Fatal(err)
	}
	defer master.Close()
	defer slave.Close()

	received := make(chan *os.File, 1)
	errs := make(chan error, 1)
	go func() {
		conn, err := listener.AcceptUnix()
		if err != nil {
			errs <- err
			return
		}
		defer conn.Close()
		f, err := console.RecvFile(conn)
		if err != nil {
			errs <- err
			return
		}
		received <- f
	}()

	rootCmd.SetArgs([]string{path, slave.Name()})
	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-errs:
		t.Fatal(err)
	case f := <-received:
		f.Close()
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the descriptor")
	}
}
