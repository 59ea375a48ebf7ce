package main

import "github.com/probelab/streamsync/cmd/streamsync/cmd"

func main() {
	cmd.Execute()
}
