package main

import "github.com/example/dps-agent/cmd"

func main() {
	cmd.Execute()
}
