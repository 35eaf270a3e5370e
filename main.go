package main

import "github.com/KaramelBytes/tagdist-cli/cmd"

func main() {
	cmd.Execute()
}
