package main

import "github.com/matrix-org/callsig/cmd/callsigd/command"

func main() {
	command.Execute()
}
