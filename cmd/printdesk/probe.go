package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/printdesk/printdesk/pkg/rfb"
)

func probeCmd() *cobra.Command {
	var (
		timeout  time.Duration
		password string
		shared   bool
	)

	cmd := &cobra.Command{
		Use:   "probe <ws-endpoint>",
		Short: "Check that a VNC server is reachable through websockify",
		Long: `Opens a remote-framebuffer client against a websockify endpoint and
prints the protocol banner the VNC server sends first.`,
		Example: `  printdesk probe ws://localhost/websockify
  printdesk probe "ws://kiosk.lan/websockify?host=10.0.0.5:5901"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			opts := rfb.Options{Shared: shared}
			if password != "" {
				opts.Credentials = &rfb.Credentials{Password: password}
			}

			sessions := rfb.NewSessions(rfb.WebSocketFactory(ctx))
			defer sessions.Close()

			client, _, err := sessions.Mount("probe", "cli", args[0], opts)
			if err != nil {
				return fmt.Errorf("connect %s: %w", args[0], err)
			}
			conn, ok := client.(*rfb.Conn)
			if !ok {
				return fmt.Errorf("unexpected client type %T", client)
			}
			banner, err := conn.ServerVersion(ctx)
			if err != nil {
				return fmt.Errorf("read banner: %w", err)
			}

			success(cmd, "%s", banner)
			return nil
		},
	}

	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 5*time.Second, "Give up after this long")
	cmd.Flags().StringVarP(&password, "password", "p", "", "VNC password to offer")
	cmd.Flags().BoolVar(&shared, "shared", true, "Request a shared session")
	return cmd
}
