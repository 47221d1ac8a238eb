package main

import "github.com/mcoot/reflexpool/internal/cli"

func main() {
	cli.Execute()
}
