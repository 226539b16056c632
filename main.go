package main

import "github.com/speedrun-hq/speedrun-bridge/pkg/cli"

func main() {
	cli.Execute()
}
