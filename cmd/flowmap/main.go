package main

import "flowmap/cmd/flowmap/cmd"

func main() {
	cmd.Execute()
}
