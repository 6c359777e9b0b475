package main

import "github.com/git-ai-project/git-ai-sub000/cmd"

var version = "dev"

func main() {
	cmd.Execute(version)
}
