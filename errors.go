/*
 * Copyright (c) 2025 ivfzhou
 * xpan-upload-api is licensed under Mulan PSL v2.
 * You can use this software according to the terms and conditions of the Mulan PSL v2.
 * You may obtain a copy of Mulan PSL v2 at:
 *          http://license.coscl.org.cn/MulanPSL2
 * THIS SOFTWARE IS PROVIDED ON AN "AS IS" BASIS, WITHOUT WARRANTIES OF ANY KIND,
 * EITHER EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO NON-INFRINGEMENT,
 * MERCHANTABILITY OR FIT FOR A PARTICULAR PURPOSE.
 * See the Mulan PSL v2 for more details.
 */

package xpan

import (
	"errors"
	"fmt"
)

// IoError 本地文件打开、定位、读写失败。
type IoError struct {
	// Op 失败的操作。
	Op string
	// Path 文件路径。
	Path string
	Err  error
}

// TruncatedReadError 读取分片时文件提前结束。
type TruncatedReadError struct {
	Sequence int64
	Read     int64
	Expected int64
}

// NetworkError 网络连接或超时失败。
type NetworkError struct {
	Op  string
	Err error
}

// ProtocolError 远程接口返回失败状态，或响应无法解析。
type ProtocolError struct {
	Op string
	// StatusCode HTTP 响应码。
	StatusCode int
	// Errno 接口错误码。nil 表示响应中不存在错误码。
	Errno *int
	// RawResponse 原始响应体。
	RawResponse string
	Err         error
}

// IntegrityMismatchError 服务端回传的分片摘要与本地计算的不一致。
type IntegrityMismatchError struct {
	Sequence int64
	Expected string
	Received string
}

// ConfigurationError 参数配置不合法。
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *IoError) Error() string {
	if len(e.Path) > 0 {
		return fmt.Sprintf("io %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("io %s: %v", e.Op, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }

func (e *TruncatedReadError) Error() string {
	return fmt.Sprintf("read slice failed on seq %d, read %d bytes, expected %d", e.Sequence, e.Read, e.Expected)
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("protocol %s failed", e.Op)
	if e.StatusCode > 0 {
		msg += fmt.Sprintf(", status code is %d", e.StatusCode)
	}
	if e.Errno != nil {
		msg += fmt.Sprintf(", errno is %d", *e.Errno)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(", %v", e.Err)
	}
	return msg + fmt.Sprintf(", rspBody is %s", e.RawResponse)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// 是否是可以重试的临时性错误。
func (e *ProtocolError) transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

func (e *IntegrityMismatchError) Error() string {
	return fmt.Sprintf("slice %d md5 not match, expected %s, received %s", e.Sequence, e.Expected, e.Received)
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Kind 错误分类描述。
func Kind(err error) string {
	var (
		ioErr        *IoError
		networkErr   *NetworkError
		protocolErr  *ProtocolError
		integrityErr *IntegrityMismatchError
		configErr    *ConfigurationError
		truncatedErr *TruncatedReadError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &configErr):
		return "configuration error"
	case errors.As(err, &integrityErr):
		return "integrity error"
	case errors.As(err, &protocolErr):
		return "protocol error"
	case errors.As(err, &networkErr):
		return "network error"
	case errors.As(err, &ioErr), errors.As(err, &truncatedErr):
		return "io error"
	default:
		return "error"
	}
}
