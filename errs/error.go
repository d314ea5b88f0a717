package errs

import (
	"errors"
	"fmt"
)

type EchoErr struct {
	msg  string
	code int64
	err  error
}

// Error 输出格式：
// [错误码] 错误类型描述 ( => 包含错误详细描述 )
// 解释：(xxx) 表示可选内容
func (ee *EchoErr) Error() string {
	details := fmt.Sprintf("[%d] %s", ee.code, ee.msg)
	if ee.err != nil {
		details += fmt.Sprintf(" => %s", ee.err)
	}

	return details
}

func (ee *EchoErr) Code() int64 {
	return ee.code
}

func (ee *EchoErr) WithErr(err error) *EchoErr {
	ee.err = err
	return ee
}

// Unwrap 暴露底层 errno，便于 errors.Is 判断 unix.EAGAIN 等
func (ee *EchoErr) Unwrap() error {
	return ee.err
}

func GetCode(err error) int64 {
	var ee *EchoErr
	if errors.As(err, &ee) {
		return ee.code
	}
	return UnknownErrCode
}

const (
	UnknownErrCode      = 0
	InvalidParamErrCode = 100001
	ReadConfigErrCode   = 100002
	ResolveAddrErrCode  = 100003
	OpenFileErrCode     = 100004
	DirNotExistErrCode  = 100005
	FileNoPermErrCode   = 100006
	FileStatErrCode     = 100007
	MkdirErrCode        = 100008

	// 连接生命周期，均为常规拆链原因
	PeerClosedErrCode     = 200001
	PeerHangupErrCode     = 200002
	SocketErrCode         = 200003
	AcceptFailureErrCode  = 200004
	SendFailureErrCode    = 200005
	ReceiveFailureErrCode = 200006

	SocketCreateErrCode        = 300001
	SocketBindErrCode          = 300002
	SocketListenErrCode        = 300003
	SocketOptionErrCode        = 300004
	CloseSocketErrCode         = 300005
	ConnectionNotFoundErrCode  = 300006
	PollerCreateErrCode        = 300007
	PollerRegisterErrCode      = 300008
	PollerModifyErrCode        = 300009
	PollerUnregisterErrCode    = 300010
	PollerWaitErrCode          = 300011
	UnsupportedPlatformErrCode = 300012
)

func NewUnknownErr() *EchoErr {
	return &EchoErr{msg: "unknown error", code: UnknownErrCode}
}

func NewInvalidParamErr() *EchoErr {
	return &EchoErr{msg: "invalid params", code: InvalidParamErrCode}
}

func NewReadConfigErr() *EchoErr {
	return &EchoErr{msg: "read config failed", code: ReadConfigErrCode}
}

func NewResolveAddrErr() *EchoErr {
	return &EchoErr{msg: "resolve address failed", code: ResolveAddrErrCode}
}

func NewOpenFileErr() *EchoErr {
	return &EchoErr{msg: "open file failed", code: OpenFileErrCode}
}

func NewDirNotExistErr() *EchoErr {
	return &EchoErr{msg: "directory not exist", code: DirNotExistErrCode}
}

func NewFileNoPermissionErr() *EchoErr {
	return &EchoErr{msg: "file no permission", code: FileNoPermErrCode}
}

func NewFileStatErr() *EchoErr {
	return &EchoErr{msg: "file stat failed", code: FileStatErrCode}
}

func NewMkdirErr() *EchoErr {
	return &EchoErr{msg: "mkdir failed", code: MkdirErrCode}
}

func NewPeerClosedErr() *EchoErr {
	return &EchoErr{msg: "peer closed connection", code: PeerClosedErrCode}
}

func NewPeerHangupErr() *EchoErr {
	return &EchoErr{msg: "peer hung up", code: PeerHangupErrCode}
}

func NewSocketErr() *EchoErr {
	return &EchoErr{msg: "exceptional condition on socket", code: SocketErrCode}
}

func NewAcceptFailureErr() *EchoErr {
	return &EchoErr{msg: "accept connection failed", code: AcceptFailureErrCode}
}

func NewSendFailureErr() *EchoErr {
	return &EchoErr{msg: "send to socket failed", code: SendFailureErrCode}
}

func NewReceiveFailureErr() *EchoErr {
	return &EchoErr{msg: "receive from socket failed", code: ReceiveFailureErrCode}
}

func NewSocketCreateErr() *EchoErr {
	return &EchoErr{msg: "create socket failed", code: SocketCreateErrCode}
}

func NewSocketBindErr() *EchoErr {
	return &EchoErr{msg: "bind socket failed", code: SocketBindErrCode}
}

func NewSocketListenErr() *EchoErr {
	return &EchoErr{msg: "listen on socket failed", code: SocketListenErrCode}
}

func NewSocketOptionErr() *EchoErr {
	return &EchoErr{msg: "set socket option failed", code: SocketOptionErrCode}
}

func NewCloseSocketErr() *EchoErr {
	return &EchoErr{msg: "close socket failed", code: CloseSocketErrCode}
}

func NewConnectionNotFoundErr() *EchoErr {
	return &EchoErr{msg: "connection not found in registry", code: ConnectionNotFoundErrCode}
}

func NewPollerCreateErr() *EchoErr {
	return &EchoErr{msg: "create poller failed", code: PollerCreateErrCode}
}

func NewPollerRegisterErr() *EchoErr {
	return &EchoErr{msg: "register fd to poller failed", code: PollerRegisterErrCode}
}

func NewPollerModifyErr() *EchoErr {
	return &EchoErr{msg: "modify fd interest failed", code: PollerModifyErrCode}
}

func NewPollerUnregisterErr() *EchoErr {
	return &EchoErr{msg: "unregister fd from poller failed", code: PollerUnregisterErrCode}
}

func NewPollerWaitErr() *EchoErr {
	return &EchoErr{msg: "wait poller events failed", code: PollerWaitErrCode}
}

func NewUnsupportedPlatformErr() *EchoErr {
	return &EchoErr{msg: "platform not supported", code: UnsupportedPlatformErrCode}
}
