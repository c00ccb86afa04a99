package main

import "cadmcp/cmd"

func main() {
	cmd.Execute()
}
