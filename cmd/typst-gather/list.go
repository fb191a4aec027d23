// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/typst-gather/typst-gather/internal/registry"
)

func newListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list [config]",
		Short: "List the packages present in the destination",
		Long: `List the packages present in the configured destination, one
namespace/name:version per line, sorted by namespace, name and version.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wd, err := os.Getwd()
			if err != nil {
				return a.fail(cmd, err)
			}
			rc, err := resolveConfig(args, wd, a.logger)
			if err != nil {
				return a.fail(cmd, err)
			}
			req, err := a.request(rc)
			if err != nil {
				return a.fail(cmd, err)
			}

			specs, err := registry.NewCache(req.Destination, nil).List()
			if err != nil {
				return a.fail(cmd, err)
			}
			if len(specs) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), SubtitleStyle.Render("No packages in "+relativeTo(wd, req.Destination)))
				return nil
			}
			for _, spec := range specs {
				fmt.Fprintln(cmd.OutOrStdout(), spec.Key())
			}
			return nil
		},
	}
}
