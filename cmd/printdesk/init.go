package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/printdesk/printdesk/internal/build"
	"github.com/printdesk/printdesk/internal/templates"
)

func initCmd(flags *globalFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold the front-end project and a default config",
		Long: `Writes the front-end project skeleton into frontend.dir: package.json,
vite.config.ts, index.html, src/main.ts, the view stubs and
src/router/index.ts generated from the server's route table. printdesk.json
is written next to it when no config file exists yet.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			dir := cfg.FrontendPath()
			if !force {
				if _, err := os.Stat(filepath.Join(dir, "package.json")); err == nil {
					warn(cmd, "%s already holds a front-end project (use --force to overwrite)", dir)
					return nil
				}
			}

			tmpl, err := templates.Get("frontend")
			if err != nil {
				return err
			}
			if err := tmpl.Create(dir, build.FromConfig(cfg).Template()); err != nil {
				return err
			}
			success(cmd, "Front-end scaffolded in %s", dir)

			if _, err := os.Stat(cfg.Path()); os.IsNotExist(err) {
				if err := cfg.Save(); err != nil {
					return err
				}
				success(cmd, "Wrote %s", cfg.Path())
			}

			info(cmd, "Next: cd %s && npm install && printdesk build", dir)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing front-end project")
	return cmd
}
