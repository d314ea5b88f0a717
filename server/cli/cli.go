package cli

import (
	"time"

	"github.com/Trinoooo/eggie_echo/consts"
	"github.com/Trinoooo/eggie_echo/errs"
	"github.com/Trinoooo/eggie_echo/server"
	"github.com/Trinoooo/eggie_echo/server/logs"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func invalid(param string, value int64) error {
	e := errs.NewInvalidParamErr()
	logs.Error(e.Error(), zap.String(consts.LogFieldParams, param), zap.Int64(consts.LogFieldValue, value))
	return e
}

var (
	flagHost = &cli.StringFlag{
		Name:    "host",
		Aliases: []string{"h"},
		Value:   consts.DefaultHost,
		Usage:   "server host name, must resolve to an ipv4 address.",
		EnvVars: []string{consts.Host},
	}
	flagPort = &cli.Int64Flag{
		Name:    "port",
		Aliases: []string{"p"},
		Value:   consts.DefaultPort,
		Usage:   "server port number, 0 <= port <= 65535 are available, 0 picks a free port.",
		Action: func(c *cli.Context, port int64) error {
			if port < 0 || port > 65535 {
				return invalid(consts.ConfigPort, port)
			}
			return nil
		},
		EnvVars: []string{consts.Port},
	}
	flagPollTimeout = &cli.Int64Flag{
		Name:    "poll-timeout",
		Aliases: []string{"t"},
		Value:   consts.DefaultPollTimeoutMs,
		Usage:   "max milliseconds a single poll blocks, must be >= 1.",
		Action: func(c *cli.Context, ms int64) error {
			if ms < 1 {
				return invalid(consts.ConfigPollTimeoutMs, ms)
			}
			return nil
		},
		EnvVars: []string{consts.PollTimeout},
	}
	flagRecvBufferSize = &cli.Int64Flag{
		Name:    "recv-buffer-size",
		Aliases: []string{"b"},
		Value:   consts.DefaultRecvBufferSize,
		Usage:   "max bytes read per receive, 0 < size <= 1MB are available.",
		Action: func(c *cli.Context, size int64) error {
			if size <= 0 || size > consts.MaxRecvBufferSize {
				return invalid(consts.ConfigRecvBufferSize, size)
			}
			return nil
		},
		EnvVars: []string{consts.RecvBufferSize},
	}
	flagBacklog = &cli.Int64Flag{
		Name:    "backlog",
		Value:   consts.DefaultBacklog,
		Usage:   "listen backlog, must be > 0.",
		Action: func(c *cli.Context, backlog int64) error {
			if backlog <= 0 {
				return invalid(consts.ConfigBacklog, backlog)
			}
			return nil
		},
		EnvVars: []string{consts.Backlog},
	}
	flagMaxEvents = &cli.Int64Flag{
		Name:    "max-events",
		Value:   consts.DefaultMaxEvents,
		Usage:   "max events returned by a single poll, must be > 0.",
		Action: func(c *cli.Context, n int64) error {
			if n <= 0 {
				return invalid(consts.ConfigMaxEvents, n)
			}
			return nil
		},
		EnvVars: []string{consts.MaxEvents},
	}
	flagMetricsPushURL = &cli.StringFlag{
		Name:    "metrics-push-url",
		Usage:   "prometheus pushgateway url, metrics are not pushed when empty.",
		EnvVars: []string{consts.MetricsPushURL},
	}
	flagConfig = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "yaml config file, defaults to ~/eggie_echo/config/config.yaml if present.",
		EnvVars: []string{consts.ConfigFile},
	}
)

type Wrapper struct {
	app *cli.App
	// serve 启动服务，测试中替换以避免进入事件循环
	serve func(cfg *server.Config) error
}

func NewWrapper() *Wrapper {
	wrapper := &Wrapper{
		app: &cli.App{
			Name:    consts.AppName,
			Usage:   "a single threaded tcp echo server driven by readiness events",
			Version: consts.AppVersion,
		},
		serve: serve,
	}
	wrapper.modifyDefaultHelp()
	wrapper.withFlags()
	wrapper.withAction()
	wrapper.withAuthor()
	return wrapper
}

func (wrapper *Wrapper) Run(args []string) error {
	return wrapper.app.Run(args)
}

func (wrapper *Wrapper) modifyDefaultHelp() {
	cli.HelpFlag = &cli.BoolFlag{
		Name: "help",
	}
	cli.AppHelpTemplate = consts.HelpTemplate
}

func (wrapper *Wrapper) withFlags() {
	wrapper.app.Flags = []cli.Flag{
		flagHost,
		flagPort,
		flagPollTimeout,
		flagRecvBufferSize,
		flagBacklog,
		flagMaxEvents,
		flagMetricsPushURL,
		flagConfig,
	}
}

func (wrapper *Wrapper) withAction() {
	wrapper.app.Action = func(ctx *cli.Context) error {
		cfg, err := configFromContext(ctx)
		if err != nil {
			return err
		}
		return wrapper.serve(cfg)
	}
}

func (wrapper *Wrapper) withAuthor() {
	wrapper.app.Authors = []*cli.Author{
		{
			Name:  "Trino",
			Email: "sujun.trinoooo@gmail.com",
		},
	}
}

// configFromContext 在配置文件与环境变量之上叠加显式给出的命令行参数
func configFromContext(ctx *cli.Context) (*server.Config, error) {
	cfg, err := server.LoadConfig(ctx.String(flagConfig.Name))
	if err != nil {
		return nil, err
	}

	if ctx.IsSet(flagHost.Name) {
		cfg.Host = ctx.String(flagHost.Name)
	}
	if ctx.IsSet(flagPort.Name) {
		cfg.Port = int(ctx.Int64(flagPort.Name))
	}
	if ctx.IsSet(flagPollTimeout.Name) {
		cfg.PollTimeout = msToDuration(ctx.Int64(flagPollTimeout.Name))
	}
	if ctx.IsSet(flagRecvBufferSize.Name) {
		cfg.RecvBufferSize = int(ctx.Int64(flagRecvBufferSize.Name))
	}
	if ctx.IsSet(flagBacklog.Name) {
		cfg.Backlog = int(ctx.Int64(flagBacklog.Name))
	}
	if ctx.IsSet(flagMaxEvents.Name) {
		cfg.MaxEvents = int(ctx.Int64(flagMaxEvents.Name))
	}
	if ctx.IsSet(flagMetricsPushURL.Name) {
		cfg.MetricsPushURL = ctx.String(flagMetricsPushURL.Name)
	}

	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func msToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// serve 不处理退出信号，进程被终止时由内核回收 socket
func serve(cfg *server.Config) error {
	srv, err := server.NewEventLoopServer(cfg, server.WithMetrics(server.NewMetricsHelper()))
	if err != nil {
		return err
	}
	defer srv.Close()
	return srv.Serve()
}
