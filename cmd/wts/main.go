package main

import "github.com/GnosisFoundation/git-ts/cmd/wts/cmd"

func main() {
	cmd.Execute()
}
