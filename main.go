package main

import "github.com/timvw/config-puller/cmd"

func main() {
	cmd.Execute()
}
