package main

import (
	"os"

	"github.com/wayde1122/chat-box-code/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
