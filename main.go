package main

import "github.com/kozaktomas/facelens/cmd"

func main() {
	cmd.Execute()
}
