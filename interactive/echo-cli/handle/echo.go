package handle

import (
	"fmt"
	"io"
	"net"
	"time"

	"github.com/Trinoooo/eggie_echo/utils"
)

type ClientWrapper struct {
	Conn    net.Conn
	Timeout time.Duration
	Out     io.Writer
}

// HandleInput 发送一行输入并等待等长的回显，连接不可用时返回 false
func (client *ClientWrapper) HandleInput(input string) bool {
	if input == "" {
		return true
	}

	msg := []byte(input)
	if err := client.Conn.SetDeadline(time.Now().Add(client.Timeout)); err != nil {
		fmt.Fprintln(client.Out, utils.WrapError("error occur when set deadline, err: %v", err))
		return false
	}

	if _, err := client.Conn.Write(msg); err != nil {
		fmt.Fprintln(client.Out, utils.WrapError("error occur when send, err: %v", err))
		return false
	}

	// 服务端可能分多次回写，读满为止
	buf := make([]byte, len(msg))
	if _, err := io.ReadFull(client.Conn, buf); err != nil {
		fmt.Fprintln(client.Out, utils.WrapError("error occur when receive echo, err: %v", err))
		return false
	}

	fmt.Fprintln(client.Out, utils.WrapEcho("%s", buf))
	return true
}
