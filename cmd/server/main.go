package main

import "github.com/tuplan/server/cmd/server/cmd"

func main() {
	cmd.Execute()
}
