package main

import "github.com/gnomandev/gnoman/cmd"

func main() {
	cmd.Execute()
}
