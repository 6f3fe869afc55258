// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/x4vfs/x4vfs"
)

func newCheckCmd(flags *rootFlags) *cobra.Command {
	var extensionID string
	var earlyLate bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate that an extension's patches apply under alternative load orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfigAndLogger(flags)
			if err != nil {
				return err
			}

			extensions, _, err := x4vfs.DiscoverExtensions(x4vfs.DiscoveryOptions{
				GameRoot:       cfg.GameRoot,
				UserDir:        cfg.UserDir,
				ActiveLanguage: cfg.ActiveLanguage,
				ReaderOptions:  x4vfs.CatalogReaderOptions{AllowMD5Errors: cfg.AllowMD5Errors},
			})
			if err != nil {
				return err
			}

			var target *x4vfs.Extension
			for i := range extensions {
				if extensions[i].ID() == extensionID {
					target = &extensions[i]
					break
				}
			}
			if target == nil {
				return fmt.Errorf("%w: extension %q not found", x4vfs.ErrManifestParseError, extensionID)
			}

			baseLoc, err := x4vfs.NewSourceLocation(cfg.GameRoot, false, x4vfs.CatalogReaderOptions{AllowMD5Errors: cfg.AllowMD5Errors})
			if err != nil {
				return err
			}

			diffOpts := x4vfs.DiffOptions{IdentifyingAttrs: cfg.ForcedXPathAttributes}
			results, err := x4vfs.CheckExtension(*target, extensions, []x4vfs.VFSLayer{{ID: "", Location: baseLoc}}, diffOpts, earlyLate)
			if err != nil {
				return err
			}

			for _, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d issues\n", r.Variant, len(r.Diagnostics))
				for _, d := range r.Diagnostics {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s\n", d.ExtensionID, d.Message)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&extensionID, "extension", "", "extension id to check")
	cmd.Flags().BoolVar(&earlyLate, "early-late", false, "also probe earliest/latest dependency-consistent load order")
	_ = cmd.MarkFlagRequired("extension")

	return cmd
}
