package consts

import (
	"fmt"

	"github.com/mitchellh/go-homedir"
)

const (
	B = 1 << (iota * 10)
	KB
	MB
	GB
)

const HelpTemplate = `NAME:
   {{.Name}} - {{.Usage}}
USAGE:
   {{.HelpName}} {{if .VisibleFlags}}[global options]{{end}}{{if .Commands}} command [command options]{{end}} {{if .ArgsUsage}}{{.ArgsUsage}}{{else}}[arguments...]{{end}}
   {{if len .Authors}}
AUTHOR:
   {{range .Authors}}{{ . }}{{end}}
   {{end}}{{if .Commands}}
COMMANDS:
{{range .Commands}}{{if not .HideHelp}}   {{join .Names ", "}}{{ "\t"}}{{.Usage}}{{ "\n" }}{{end}}{{end}}{{end}}{{if .VisibleFlags}}
GLOBAL OPTIONS:
   {{range .VisibleFlags}}{{.}}
   {{end}}{{end}}{{if .Copyright }}
COPYRIGHT:
   {{.Copyright}}
   {{end}}{{if .Version}}
VERSION:
   {{.Version}}
   {{end}}
`

const (
	AppName    = "eggie_echo"
	AppVersion = "0.0.1.261014_alpha"
)

// 默认值
const (
	DefaultHost                = "localhost"
	DefaultPort                = 10000
	DefaultPollTimeoutMs       = 1000
	DefaultRecvBufferSize      = KB
	DefaultBacklog             = 5
	DefaultMaxEvents           = 128
	DefaultMetricsPushInterval = 5000
	MaxRecvBufferSize          = MB
)

// 配置项 key，viper 与命令行共用
const (
	ConfigHost                  = "host"
	ConfigPort                  = "port"
	ConfigPollTimeoutMs         = "poll_timeout"
	ConfigRecvBufferSize        = "recv_buffer_size"
	ConfigBacklog               = "backlog"
	ConfigMaxEvents             = "max_events"
	ConfigMetricsPushURL        = "metrics_push_url"
	ConfigMetricsPushIntervalMs = "metrics_push_interval"
)

// 日志字段
const (
	LogFieldComponent  = "component"
	LogFieldFd         = "fd"
	LogFieldConnId     = "conn_id"
	LogFieldRemoteAddr = "remote_addr"
	LogFieldBytes      = "bytes"
	LogFieldReason     = "reason"
	LogFieldFrom       = "from"
	LogFieldTo         = "to"
	LogFieldParams     = "params"
	LogFieldValue      = "value"
	LogFieldErr        = "err"
)

func init() {
	home, _ := homedir.Dir()
	BaseDir = fmt.Sprintf("%s/%s", home, AppName)
	DefaultConfigPath = fmt.Sprintf("%s/config", BaseDir)
}

var (
	BaseDir           string
	DefaultConfigPath string
	TmpDir            = "/tmp/eggie_echo"
)
