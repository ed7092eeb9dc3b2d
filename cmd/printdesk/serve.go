package main

import (
	"context"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/printdesk/printdesk/frontend"
	"github.com/printdesk/printdesk/internal/config"
	"github.com/printdesk/printdesk/internal/printing"
	"github.com/printdesk/printdesk/internal/server"
	"github.com/printdesk/printdesk/internal/storage"
	"github.com/printdesk/printdesk/internal/vnc"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		addr        string
		frontendDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the printdesk server",
		Long: `Runs the HTTP server: the front-end shell, the file and print API,
the VNC connection list and the websockify proxy.

The server shuts down gracefully on SIGINT or SIGTERM, waiting up to
server.shutdownTimeout for in-flight requests.`,
		Example: `  printdesk serve
  printdesk serve --addr :8080
  printdesk serve -c /etc/printdesk/printdesk.yaml --log-format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if err := applyAddr(cfg, addr); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := newServer(ctx, cfg, frontendDir)
			if err != nil {
				return err
			}

			slog.Info("printdesk listening",
				"addr", cfg.Address(),
				"storage", cfg.Storage.Backend,
				"metrics", cfg.Server.Metrics)
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address, overrides server.host and server.port")
	cmd.Flags().StringVar(&frontendDir, "frontend-dir", "", "Serve the front-end from this build directory instead of the embedded one")

	return cmd
}

// applyAddr overrides the configured host and port with a host:port flag.
func applyAddr(cfg *config.Config, addr string) error {
	if addr == "" {
		return nil
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return err
	}
	cfg.Server.Host = host
	cfg.Server.Port = p
	return cfg.Validate()
}

// newServer wires the storage back-end, printer, connection store and
// metrics registry into a server.
func newServer(ctx context.Context, cfg *config.Config, frontendDir string) (*server.Server, error) {
	store, err := storage.FromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	fsys, err := frontendFS(frontendDir)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return server.New(server.Options{
		Config: cfg,
		Store:  store,
		Printer: printing.New(printing.Options{
			Command:     cfg.Print.Command,
			Printer:     cfg.Print.Printer,
			OpenCommand: cfg.Print.OpenCommand,
		}),
		Connections: vnc.NewStore(cfg.ConnectionsPath()),
		Frontend:    fsys,
		Registry:    registry,
	})
}

// frontendFS returns dir when it holds a build, else the embedded front-end.
func frontendFS(dir string) (fs.FS, error) {
	if dir == "" {
		return frontend.FS(), nil
	}
	if _, err := os.Stat(filepath.Join(dir, "index.html")); err != nil {
		return nil, err
	}
	return os.DirFS(dir), nil
}
