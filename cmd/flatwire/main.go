package main

import "github.com/rawbytedev/flatwire/cmd/flatwire/cmd"

func main() {
	cmd.Execute()
}
