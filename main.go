package main

import "viki/vikigraph/cmd"

func main() {
	cmd.Execute()
}
