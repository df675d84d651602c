package main

import "github.com/OpenTraceLab/svdgen/cmd/svdgen/cmd"

func main() {
	cmd.Execute()
}
