package server

import (
	"errors"
	"time"

	"github.com/Trinoooo/eggie_echo/consts"
	"github.com/Trinoooo/eggie_echo/errs"
	"github.com/Trinoooo/eggie_echo/server/logs"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	Host        string
	Port        int
	PollTimeout time.Duration
	// RecvBufferSize 单次 recv 的最大字节数，也是单个 chunk 的上限
	RecvBufferSize int
	Backlog        int
	MaxEvents      int
	// MetricsPushURL 为空时不启动 pusher
	MetricsPushURL      string
	MetricsPushInterval time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		Host:                consts.DefaultHost,
		Port:                consts.DefaultPort,
		PollTimeout:         consts.DefaultPollTimeoutMs * time.Millisecond,
		RecvBufferSize:      consts.DefaultRecvBufferSize,
		Backlog:             consts.DefaultBacklog,
		MaxEvents:           consts.DefaultMaxEvents,
		MetricsPushInterval: consts.DefaultMetricsPushInterval * time.Millisecond,
	}
}

func (cfg *Config) Validate() error {
	invalid := func(param string, value any) error {
		e := errs.NewInvalidParamErr()
		logs.Error(e.Error(), zap.String(consts.LogFieldParams, param), zap.Any(consts.LogFieldValue, value))
		return e
	}

	switch {
	case cfg.Port < 0 || cfg.Port > 65535:
		return invalid(consts.ConfigPort, cfg.Port)
	case cfg.PollTimeout < time.Millisecond:
		return invalid(consts.ConfigPollTimeoutMs, cfg.PollTimeout)
	case cfg.RecvBufferSize <= 0 || cfg.RecvBufferSize > consts.MaxRecvBufferSize:
		return invalid(consts.ConfigRecvBufferSize, cfg.RecvBufferSize)
	case cfg.Backlog <= 0:
		return invalid(consts.ConfigBacklog, cfg.Backlog)
	case cfg.MaxEvents <= 0:
		return invalid(consts.ConfigMaxEvents, cfg.MaxEvents)
	case cfg.MetricsPushURL != "" && cfg.MetricsPushInterval <= 0:
		return invalid(consts.ConfigMetricsPushIntervalMs, cfg.MetricsPushInterval)
	}
	return nil
}

// LoadConfig 依次合并默认值、配置文件与 EGGIE_ECHO_ 前缀的环境变量。
// path 为空时在默认目录查找 config.yaml，找不到不算错误；显式指定的文件必须存在。
func LoadConfig(path string) (*Config, error) {
	def := DefaultConfig()
	v := viper.New()
	v.SetDefault(consts.ConfigHost, def.Host)
	v.SetDefault(consts.ConfigPort, def.Port)
	v.SetDefault(consts.ConfigPollTimeoutMs, def.PollTimeout.Milliseconds())
	v.SetDefault(consts.ConfigRecvBufferSize, def.RecvBufferSize)
	v.SetDefault(consts.ConfigBacklog, def.Backlog)
	v.SetDefault(consts.ConfigMaxEvents, def.MaxEvents)
	v.SetDefault(consts.ConfigMetricsPushURL, def.MetricsPushURL)
	v.SetDefault(consts.ConfigMetricsPushIntervalMs, def.MetricsPushInterval.Milliseconds())

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(consts.DefaultConfigPath)
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, errs.NewReadConfigErr().WithErr(err)
		}
	}

	v.SetEnvPrefix(consts.EnvPrefix)
	v.AutomaticEnv()

	cfg := &Config{
		Host:                v.GetString(consts.ConfigHost),
		Port:                v.GetInt(consts.ConfigPort),
		PollTimeout:         time.Duration(v.GetInt64(consts.ConfigPollTimeoutMs)) * time.Millisecond,
		RecvBufferSize:      v.GetInt(consts.ConfigRecvBufferSize),
		Backlog:             v.GetInt(consts.ConfigBacklog),
		MaxEvents:           v.GetInt(consts.ConfigMaxEvents),
		MetricsPushURL:      v.GetString(consts.ConfigMetricsPushURL),
		MetricsPushInterval: time.Duration(v.GetInt64(consts.ConfigMetricsPushIntervalMs)) * time.Millisecond,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
