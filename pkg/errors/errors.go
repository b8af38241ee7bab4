package errors

import "errors"

// ErrRemoteTimeout 远端存储在限定时间内未响应
var ErrRemoteTimeout = errors.New("远端存储响应超时")
