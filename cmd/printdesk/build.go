package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/printdesk/printdesk/internal/build"
)

func buildCmd(flags *globalFlags) *cobra.Command {
	var (
		printConfig bool
		minify      bool
		clean       bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the front-end bundle",
		Long: `Renders vite.config.ts from the build configuration and runs the
bundler once. The output directory then holds index.html, the assets
and .vite/manifest.json that the server reads.`,
		Example: `  printdesk build
  printdesk build --minify
  printdesk build --print-config`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			bc := build.FromConfig(cfg)
			if err := bc.Validate(); err != nil {
				return err
			}
			if printConfig {
				return bc.Render(cmd.OutOrStdout())
			}

			opts := build.Options{
				OnProgress: func(step string) {
					info(cmd, "%s", step)
				},
			}
			if cmd.Flags().Changed("minify") {
				opts.Minify = &minify
			}
			builder := build.New(bc, opts)

			if clean {
				if err := builder.Clean(); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintln(cmd.OutOrStdout(), "Building front-end...")
			result, err := builder.Build(ctx)
			if err != nil {
				return err
			}

			success(cmd, "Build complete in %s", result.Duration.Round(time.Millisecond))
			info(cmd, "Output: %s", result.OutDir)
			if result.Manifest != nil {
				info(cmd, "Chunks: %d", len(result.Manifest.Keys()))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&printConfig, "print-config", false, "Print the generated vite.config.ts and exit")
	cmd.Flags().BoolVar(&minify, "minify", false, "Minify the output (overrides frontend.build.minify)")
	cmd.Flags().BoolVar(&clean, "clean", false, "Remove the output directory first")

	return cmd
}
