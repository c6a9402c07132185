// Package main is the entry point of the trafficsim command.
package main

import "github.com/sarchlab/trafficsim/trafficsim/cmd"

func main() {
	cmd.Execute()
}
