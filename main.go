package main

import "github.com/camden-git/photovault/cmd"

func main() {
	cmd.Execute()
}
