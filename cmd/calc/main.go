package main

import "go-chi-accumulator/cmd/calc/cmd"

func main() {
	cmd.Execute()
}
