package utils

import "fmt"

const (
	ERROR = "\033[1;31;40m[ERROR] %s\033[0m"
	WARN  = "\033[1;33;40m[WARN] %s\033[0m"
	INFO  = "\033[1;34;40m[INFO] %s\033[0m"
	ECHO  = "\033[1;32;40m# %s\033[0m"
)

func wrap(tpl, format string, args ...any) string {
	return fmt.Sprintf(tpl, fmt.Sprintf(format, args...))
}

func WrapError(format string, args ...any) string {
	return wrap(ERROR, format, args...)
}

func WrapWarn(format string, args ...any) string {
	return wrap(WARN, format, args...)
}

func WrapInfo(format string, args ...any) string {
	return wrap(INFO, format, args...)
}

// WrapEcho 用于交互式客户端打印服务端回显内容
func WrapEcho(format string, args ...any) string {
	return wrap(ECHO, format, args...)
}
