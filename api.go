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
	"net"
	"net/http"
	"runtime"
	"time"

	"go.uber.org/zap"
)

const (
	// MinSliceSize 分片的最小大小。不超过该大小的文件不切分，整体作为一个分片上传。
	MinSliceSize int64 = 4 * 1024 * 1024

	// 小文件阈值。
	smallFileThreshold = MinSliceSize
)

var (
	// SliceSize 默认分片大小。
	SliceSize int64 = 10 * 1024 * 1024
	// NumRoutines 并发计算分片摘要的协程数量。
	NumRoutines = runtime.NumCPU()
	// MaxRetries 远程调用遇到临时性错误时的最大重试次数。默认不重试，任何远程调用失败都直接结束本次上传。
	MaxRetries = 0
	// RemoteDir 文件上传到的远程目录。
	RemoteDir = "/apps/xpan-upload"
	// PanHost 预上传与创建文件接口的域名。
	PanHost = "pan.baidu.com"
	// PcsHost 分片上传接口的域名。
	PcsHost = "c.pcs.baidu.com"
	// DialTimeout 建立连接的超时时间。
	DialTimeout = 10 * time.Second
	// RequestTimeout 每一个 HTTP 请求的整体超时时间。
	RequestTimeout = 30 * time.Second
)

type Api interface {
	Baser
	RemoteStorage
	Uploader
	Querier
}

type impl struct {
	*baseImpl
	*remoteImpl
	*uploadImpl
	*queryImpl
}

// NewClient 创建网盘上传客户端。accessToken 为用户授权凭证。
func NewClient(accessToken string, opts ...option) Api {
	c := &baseImpl{accessToken: accessToken}
	c.options = options{
		panHost:        PanHost,
		pcsHost:        PcsHost,
		remoteDir:      RemoteDir,
		maxRetries:     MaxRetries,
		uploadRoutines: 1,
	}

	// 设置参数。
	for _, v := range opts {
		if v == nil {
			continue
		}
		v(&c.options)
	}
	if c.client == nil {
		c.client = newHttpClient()
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}

	remote := &remoteImpl{c}
	uploader := &uploadImpl{c, remote}

	return &impl{c, remote, uploader, &queryImpl{c}}
}

// 创建带超时设置的 HTTP 客户端。
func newHttpClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: DialTimeout, KeepAlive: 30 * time.Second}).DialContext
	return &http.Client{
		Transport: transport,
		Timeout:   RequestTimeout,
	}
}
