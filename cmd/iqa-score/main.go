package main

import (
	"github.com/Brownie44l1/iqa-score/internal/cli"
)

func main() {
	cli.Execute()
}
