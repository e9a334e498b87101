package main

import (
	"github.com/coderipple/coderipple-go/internal/cli"
)

func main() {
	cli.Execute()
}
