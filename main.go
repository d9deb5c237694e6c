package main

import "github.com/RyanBlaney/sonido-embed/cmd"

func main() {
	cmd.Execute()
}
