package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sendtty/console"
)

var rootCmd = &cobra.Command{
	Use:   "sendtty <console-socket-path> <pty-path>",
	Short: "Send a PTY descriptor to a container shim via SCM_RIGHTS",
	Long: `Sendtty opens the PTY device, connects to the console socket (a Unix
domain socket with a listening shim on the other end) and sends the open
descriptor across in a single SCM_RIGHTS message. This is the OCI runtime
console-socket protocol for terminal mode: the shim receives the PTY master
and bridges it to the user's terminal.`,
	Args:          cobra.ExactArgs(2),
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// args are validated, failures past this point are runtime
		// errors and reprinting the usage text would only bury them
		cmd.SilenceUsage = true
		return console.Send(args[0], args[1])
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
