package main

import "github.com/avelardo/librario/cmd"

// execute is a variable so tests can stub the CLI entrypoint.
var execute = cmd.Execute

func main() {
	execute()
}
