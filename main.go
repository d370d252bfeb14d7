package main

import "github.com/alejoacosta74/trading-stream/cmd"

func main() {
	cmd.Execute()
}
