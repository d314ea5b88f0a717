package logs

import "go.uber.org/zap"

// 包装函数额外跳过一层调用栈，caller 指向真正打日志的位置
func logger() *zap.Logger {
	return Logger.WithOptions(zap.AddCallerSkip(1))
}

func Debug(msg string, fields ...zap.Field) {
	logger().Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	logger().Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	logger().Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	logger().Error(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	logger().Fatal(msg, fields...)
}
