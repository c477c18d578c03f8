package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"reconaudit/backend/cli"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "PANIC: %v\n%s\n", r, string(debug.Stack()))
			os.Exit(2)
		}
	}()
	cli.Execute()
}
