package main

import "github.com/cardsim/openpgpcard/cmd"

func main() {
	cmd.Execute()
}
