package main

import "github.com/sourcelens/coderag/internal/cli"

func main() {
	cli.Execute()
}
