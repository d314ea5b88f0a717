//go:build unix

package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Trinoooo/eggie_echo/consts"
	"github.com/Trinoooo/eggie_echo/interactive/echo-cli/handle"
	"github.com/Trinoooo/eggie_echo/utils"
	"github.com/chzyer/readline"
	"github.com/urfave/cli/v2"
)

func main() {
	wrapper := NewCliWrapper()
	if err := wrapper.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

var (
	flagHost = &cli.StringFlag{
		Name:    "host",
		Aliases: []string{"h"},
		Value:   "127.0.0.1",
		Usage:   "server host name.",
		EnvVars: []string{consts.Host},
	}
	flagPort = &cli.Int64Flag{
		Name:    "port",
		Aliases: []string{"p"},
		Value:   consts.DefaultPort,
		Usage:   "server port number, 0 < port <= 65535 are available.",
		Action: func(c *cli.Context, port int64) error {
			if port <= 0 || port > 65535 {
				return errors.New("invalid params")
			}
			return nil
		},
		EnvVars: []string{consts.Port},
	}
	flagTimeout = &cli.DurationFlag{
		Name:    "timeout",
		Aliases: []string{"t"},
		Value:   5 * time.Second,
		Usage:   "max time to wait for a full echo.",
	}
)

type CliWrapper struct {
	app *cli.App
}

func NewCliWrapper() *CliWrapper {
	wrapper := &CliWrapper{
		app: &cli.App{
			Name:    "eggie_echo_client",
			Usage:   "client for - a single threaded tcp echo server",
			Version: consts.AppVersion,
		},
	}
	wrapper.modifyDefaultHelp()
	wrapper.withFlags()
	wrapper.withAction()
	wrapper.withAuthor()
	return wrapper
}

func (wrapper *CliWrapper) Run(args []string) error {
	return wrapper.app.Run(args)
}

func (wrapper *CliWrapper) modifyDefaultHelp() {
	cli.HelpFlag = &cli.BoolFlag{
		Name: "help",
	}
}

func (wrapper *CliWrapper) withFlags() {
	wrapper.app.Flags = []cli.Flag{
		flagHost,
		flagPort,
		flagTimeout,
	}
}

func (wrapper *CliWrapper) withAction() {
	wrapper.app.Action = func(ctx *cli.Context) error {
		addr := net.JoinHostPort(ctx.String("host"), strconv.FormatInt(ctx.Int64("port"), 10))
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			fmt.Println(utils.WrapError("error occur when dial %s, err: %v", addr, err))
			return nil
		}
		defer conn.Close()
		fmt.Println(utils.WrapInfo("connected to %s", addr))

		client := &handle.ClientWrapper{
			Conn:    conn,
			Timeout: ctx.Duration("timeout"),
			Out:     os.Stdout,
		}

		historyFile := filepath.Join(consts.TmpDir, "cli", fmt.Sprintf("cmd_history_%s", time.Now().Format("20060102")))
		history, err := utils.CheckAndCreateFile(historyFile, os.O_CREATE|os.O_RDWR, 0644)
		if err != nil {
			fmt.Println(utils.WrapWarn("history disabled, err: %v", err))
			historyFile = ""
		} else {
			_ = history.Close()
		}

		input, err := readline.NewEx(&readline.Config{
			Prompt:      "> ",
			HistoryFile: historyFile,
		})
		if err != nil {
			log.Fatal(err)
		}
		defer input.Close()
		input.CaptureExitSignal()

		for {
			str, err := input.Readline()
			if err != nil {
				if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
					return nil
				}
				log.Println(err)
				continue
			}
			if strings.EqualFold(str, "exit") {
				return nil
			}
			if !client.HandleInput(str) {
				return nil
			}
		}
	}
}

func (wrapper *CliWrapper) withAuthor() {
	wrapper.app.Authors = []*cli.Author{
		{
			Name:  "Trino",
			Email: "sujun.trinoooo@gmail.com",
		},
	}
}
