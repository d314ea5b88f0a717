package logs

import (
	"github.com/Trinoooo/eggie_echo/consts"
	"github.com/Trinoooo/eggie_echo/utils"
	"go.uber.org/zap"
)

var Logger *zap.Logger

var commonFields = []zap.Field{
	zap.String(consts.LogFieldComponent, consts.AppName),
}

func init() {
	var err error
	option := zap.AddCaller()
	if utils.IsTest() {
		Logger, err = zap.NewDevelopment(option)
	} else {
		Logger, err = zap.NewProduction(option)
	}

	if err != nil {
		panic(err)
	}
	Logger = Logger.With(commonFields...)
}

// SetLogger 替换全局 logger，测试中用于捕获日志
func SetLogger(l *zap.Logger) *zap.Logger {
	prev := Logger
	Logger = l
	return prev
}
