package main

import "dualstore-benchmark/cmd/benchstore/commands"

func main() {
	commands.Execute()
}
