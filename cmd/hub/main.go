package main

import "github.com/emrgen/mediahub/cmd"

func main() {
	cmd.Execute()
}
