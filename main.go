// Command go_enhance restores and brightens photos on this machine using the
// two-stage enhancement engine.
//
// Usage:
//
//	go_enhance [flags] image...
//
// Configuration comes from ENHANCE_* environment variables, optionally read
// from a .env file in the working directory. Flags override them.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; variables already set win.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: could not read .env: %v\n", err)
	}
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
