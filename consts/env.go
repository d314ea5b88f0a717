package consts

const (
	Env                 = "EGGIE_ECHO_ENV"                   // 运行环境，test 时日志切换为开发模式
	EnvPrefix           = "EGGIE_ECHO"                       // viper 环境变量前缀
	Host                = "EGGIE_ECHO_HOST"                  // 主机名，ipv4 或可解析到 ipv4 的域名
	Port                = "EGGIE_ECHO_PORT"                  // 端口
	PollTimeout         = "EGGIE_ECHO_POLL_TIMEOUT"          // 单次 poll 最长等待，毫秒
	RecvBufferSize      = "EGGIE_ECHO_RECV_BUFFER_SIZE"      // 单次 recv 最大字节数
	Backlog             = "EGGIE_ECHO_BACKLOG"               // listen backlog
	MaxEvents           = "EGGIE_ECHO_MAX_EVENTS"            // 单次 poll 最多返回的事件数
	MetricsPushURL      = "EGGIE_ECHO_METRICS_PUSH_URL"      // prometheus pushgateway 地址，空则不推送
	MetricsPushInterval = "EGGIE_ECHO_METRICS_PUSH_INTERVAL" // 推送间隔，毫秒
	ConfigFile          = "EGGIE_ECHO_CONFIG"                // 配置文件路径
)
