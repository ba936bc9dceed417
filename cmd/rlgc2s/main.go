// Package main 是 rlgc2s 命令行入口。
package main

import (
	"os"

	"github.com/1lj4s/HowToElementBuilder/cmd/rlgc2s/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
