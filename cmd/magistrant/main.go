package main

import "magistrant/cmd/magistrant/cmd"

func main() {
	cmd.Execute()
}
