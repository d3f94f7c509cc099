package main

import "github.com/albertnahas/booker-agent/cmd"

func main() {
	cmd.Execute()
}
