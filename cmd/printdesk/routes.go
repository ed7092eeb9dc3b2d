package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/printdesk/printdesk/frontend"
	"github.com/printdesk/printdesk/pkg/assets"
	"github.com/printdesk/printdesk/pkg/router"
)

func routesCmd() *cobra.Command {
	var resolve bool

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the route table",
		Long: `Prints the front-end route table in match order. With --resolve the
view chunks are looked up in the embedded build manifest.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			load := router.StaticLoader("/")
			if m, err := assets.LoadFS(frontend.FS(), assets.ManifestPath); err == nil {
				load = router.ManifestLoader(m, "/")
			}
			r, err := router.New(router.DefaultRoutes(load))
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			if resolve {
				fmt.Fprintln(tw, "PATH\tNAME\tTITLE\tCHUNK")
			} else {
				fmt.Fprintln(tw, "PATH\tNAME\tTITLE")
			}
			for _, route := range append(r.Routes(), r.NotFoundRoute()) {
				path := route.Path
				if path == "" {
					path = "*"
				}
				if !resolve {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", path, route.Name, route.Meta.Title)
					continue
				}
				chunk := "-"
				if route.Load != nil {
					if comp, err := route.Load(cmd.Context()); err == nil && comp.Script != "" {
						chunk = comp.Script
					}
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", path, route.Name, route.Meta.Title, chunk)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&resolve, "resolve", false, "Show the chunk each view loads")
	return cmd
}
