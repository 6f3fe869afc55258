// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta

// Command x4vfs drives the catalog codec, XML diff engine and layered
// virtual file system over a command line.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
