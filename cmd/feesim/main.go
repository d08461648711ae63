package main

import "github.com/mariusgiger/feesim-stream/cmd/feesim/cmd"

func main() {
	cmd.Execute()
}
