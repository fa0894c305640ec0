package main

import "github.com/conneroisu/gptdata/cmd"

func main() {
	cmd.Execute()
}
