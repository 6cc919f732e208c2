package main

import (
	"github.com/cnosuke/commando/cmd"
)

var (
	// Version and Revision are replaced when building.
	Version  = "0.0.1"
	Revision = "xxx"

	Name = "commando"
)

func main() {
	cmd.Execute(Name, Version, Revision)
}
