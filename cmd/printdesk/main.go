// Command printdesk runs the print kiosk server and its front-end tooling.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	pderrors "github.com/printdesk/printdesk/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globalFlags are shared by every command.
type globalFlags struct {
	config    string
	logLevel  string
	logFormat string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		pderrors.PrintError(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "printdesk",
		Short: "File printing and VNC kiosk server",
		Long: `printdesk serves a small single-page front-end for a shared print
station:

  • Upload, download and delete files
  • Print documents and PDFs through the system spooler
  • Open documents in the desktop viewer
  • Reach saved VNC servers through a built-in websockify proxy`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogger(cmd.ErrOrStderr(), flags.logLevel, flags.logFormat)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.config, "config", "c", ".", "Config file or directory holding printdesk.json/printdesk.yaml")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")
	rootCmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "Log format: text or json (default from config)")

	rootCmd.AddCommand(
		serveCmd(flags),
		buildCmd(flags),
		initCmd(flags),
		routesCmd(),
		probeCmd(),
		versionCmd(),
	)
	return rootCmd
}

// success prints a success message.
func success(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.ErrOrStderr(), "\033[33m!\033[0m %s\n", fmt.Sprintf(format, args...))
}
