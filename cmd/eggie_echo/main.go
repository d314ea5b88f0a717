//go:build unix

package main

import (
	"os"

	"github.com/Trinoooo/eggie_echo/server/cli"
	"github.com/Trinoooo/eggie_echo/server/logs"
	"go.uber.org/zap"
)

func main() {
	wrapper := cli.NewWrapper()
	if err := wrapper.Run(os.Args); err != nil {
		logs.Fatal("server exit", zap.Error(err))
	}
}
