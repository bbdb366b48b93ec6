package main

import "github.com/fluxdna/timegate/cmd"

func main() {
	cmd.Execute()
}
