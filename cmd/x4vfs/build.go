// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/x4vfs/x4vfs"
)

func newBuildCmd(flags *rootFlags) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Discover extensions, resolve load order, and write the output extension's loose files",
		Long:  "Discover extensions, resolve load order, generate the output extension and write its loose files under --out.\n" +
			"Catalog outputs (when output_to_catalog is set) and the generated content.xml are not written to disk.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfigAndLogger(flags)
			if err != nil {
				return err
			}

			extensions, diags, err := x4vfs.DiscoverExtensions(x4vfs.DiscoveryOptions{
				GameRoot:       cfg.GameRoot,
				UserDir:        cfg.UserDir,
				ActiveLanguage: cfg.ActiveLanguage,
				ReaderOptions:  x4vfs.CatalogReaderOptions{AllowMD5Errors: cfg.AllowMD5Errors},
			})
			if err != nil {
				return err
			}
			for _, d := range diags {
				log.Warn().Str("extension", d.ExtensionID).Msg(d.Message)
			}

			order, orderDiags, err := x4vfs.ResolveLoadOrder(extensions)
			if err != nil {
				return err
			}
			for _, d := range orderDiags {
				log.Warn().Str("extension", d.ExtensionID).Msg(d.Message)
			}

			baseLoc, err := x4vfs.NewSourceLocation(cfg.GameRoot, false, x4vfs.CatalogReaderOptions{AllowMD5Errors: cfg.AllowMD5Errors})
			if err != nil {
				return err
			}

			layers := []x4vfs.VFSLayer{{ID: "", Location: baseLoc}}
			for _, ext := range order {
				layers = append(layers, x4vfs.VFSLayer{ID: ext.ID(), Location: ext.Location})
			}

			diffOpts := x4vfs.DiffOptions{IdentifyingAttrs: cfg.ForcedXPathAttributes}
			vfs := x4vfs.NewVFS(layers, diffOpts)

			if err := vfs.WarmUp(context.Background(), vfs.ListFiles(nil), cfg.WorkerPoolSize); err != nil {
				return err
			}

			output, err := x4vfs.GenerateOutput(vfs, x4vfs.ManifestInput{
				ID:              cfg.OutputExtensionID,
				Name:            cfg.OutputExtensionName,
				Version:         cfg.OutputExtensionVersion,
				OutputToCatalog: cfg.OutputToCatalog,
			}, nil, diffOpts)
			if err != nil {
				return err
			}

			if len(output.LooseFiles) > 0 {
				if err := x4vfs.WriteLooseFiles(context.Background(), outDir, output.LooseFiles, cfg.WorkerPoolSize); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "resolved %d extensions, %d modified files, %d dependencies\n",
				len(order), len(output.LooseFiles)+len(output.CatInputs)+len(output.SubstCatInputs), len(output.OriginatingExtensions))

			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "extensions", "output extension directory for loose-file emission")

	return cmd
}
