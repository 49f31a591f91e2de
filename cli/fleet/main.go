package main

import (
	"os"

	fleetcmder "github.com/papercomputeco/fleet/cmd/fleet"
)

func main() {
	cmd := fleetcmder.NewFleetCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
