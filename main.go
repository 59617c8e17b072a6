package main

import "github.com/cmaudit/claimscope/cmd"

func main() {
	cmd.Execute()
}
