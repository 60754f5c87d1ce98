package main

import "github.com/LENAX/dependent-engine/pkg/cli/cmd"

func main() {
	cmd.Execute()
}
