// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/x4vfs/x4vfs"
)

// defaultDatPath derives the paired .dat path from a .cat path.
func defaultDatPath(catPath string) string {
	return strings.TrimSuffix(catPath, filepath.Ext(catPath)) + ".dat"
}

// newCatCmd lists the entries of a .cat/.dat pair, for inspection.
func newCatCmd() *cobra.Command {
	var allowMD5Errors bool

	cmd := &cobra.Command{
		Use:   "cat <path.cat>",
		Short: "List entries of a catalog index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader, err := x4vfs.OpenCatalogWithOptions(args[0], defaultDatPath(args[0]), x4vfs.CatalogReaderOptions{AllowMD5Errors: allowMD5Errors})
			if err != nil {
				return err
			}
			defer reader.Close()

			for _, e := range reader.Entries() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%d\t%s\n", e.Path, e.Length, e.Timestamp, e.MD5Hex)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&allowMD5Errors, "allow-md5-errors", false, "tolerate checksum mismatches while reading")

	return cmd
}

// newDatCmd extracts one entry's payload from a .cat/.dat pair to stdout.
func newDatCmd() *cobra.Command {
	var datPath string
	var allowMD5Errors bool

	cmd := &cobra.Command{
		Use:   "dat <path.cat> <entry-path>",
		Short: "Extract one entry's payload from a catalog to stdout",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if datPath == "" {
				datPath = defaultDatPath(args[0])
			}

			reader, err := x4vfs.OpenCatalogWithOptions(args[0], datPath, x4vfs.CatalogReaderOptions{AllowMD5Errors: allowMD5Errors})
			if err != nil {
				return err
			}
			defer reader.Close()

			data, err := reader.Read(args[1])
			if err != nil {
				return err
			}

			_, err = os.Stdout.Write(data)
			return err
		},
	}

	cmd.Flags().StringVar(&datPath, "dat", "", "path to the .dat file (defaults to the .cat path with .dat extension)")
	cmd.Flags().BoolVar(&allowMD5Errors, "allow-md5-errors", false, "tolerate checksum mismatches while reading")

	return cmd
}
