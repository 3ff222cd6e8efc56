package main

import "github.com/mcoot/teamroster/internal/cli"

func main() {
	cli.Execute()
}
