package main

import "github.com/AlessandroAnnini/midi-controller/cmd"

func main() {
	cmd.Execute()
}
