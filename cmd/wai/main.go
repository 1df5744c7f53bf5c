// Package main is the entry point for the wai CLI.
package main

import "github.com/wantanidea/wantanidea-cli/internal/cli"

func main() {
	cli.Execute()
}
