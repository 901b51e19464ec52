// Package main is the entry point for the evogen CLI.
package main

import "evogen.dev/pkg/evogen/cmd"

func main() {
	cmd.Execute()
}
