package main

import "github.com/pulsedash/dashcal/cmd/dashcal/cmd"

func main() {
	cmd.Execute()
}
