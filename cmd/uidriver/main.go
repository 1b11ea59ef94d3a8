package main

import "github.com/devicelab-dev/uidriver/pkg/cli"

func main() {
	cli.Execute()
}
