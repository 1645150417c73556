package main

import (
	"os"
	"runtime/debug"

	"github.com/mezonai/ledgerstore/cmd"
	"github.com/mezonai/ledgerstore/logx"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			_ = logx.Errorf("LEDGERSTORE CRASHED: %v\n%s", r, debug.Stack())
			os.Exit(1)
		}
	}()

	cmd.Execute()
}
