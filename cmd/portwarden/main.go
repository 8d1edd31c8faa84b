// Command portwarden is the CLI entry point: status and sync subcommands
// over the port-forwarding manager and its collaborators.
package main

import "portwarden/internal/cli"

func main() {
	cli.Execute()
}
