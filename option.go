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
	"net/http"

	"go.uber.org/zap"
)

type options struct {
	client         *http.Client
	insecure       bool
	panHost        string
	pcsHost        string
	remoteDir      string
	logger         *zap.Logger
	progress       func(Progress)
	maxRetries     int
	uploadRoutines int
}

type option func(*options)

// WithHttpClient 使用自定义 HTTP 客户端实现。默认使用连接超时 DialTimeout、整体超时 RequestTimeout 的客户端。
func WithHttpClient(client *http.Client) option {
	return func(o *options) {
		o.client = client
	}
}

// WithHttp 使用 http 协议。默认使用 https。
func WithHttp() option {
	return func(o *options) {
		o.insecure = true
	}
}

// WithEndpoints 自定义接口域名。空字符串表示保持默认值。
func WithEndpoints(panHost, pcsHost string) option {
	return func(o *options) {
		if len(panHost) > 0 {
			o.panHost = panHost
		}
		if len(pcsHost) > 0 {
			o.pcsHost = pcsHost
		}
	}
}

// WithRemoteDir 文件上传到的远程目录。
func WithRemoteDir(dir string) option {
	return func(o *options) {
		if len(dir) > 0 {
			o.remoteDir = dir
		}
	}
}

// WithLogger 使用自定义日志。默认不输出日志。
func WithLogger(logger *zap.Logger) option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithProgress 上传进度回调。回调串行执行，不应阻塞。
func WithProgress(fn func(Progress)) option {
	return func(o *options) {
		o.progress = fn
	}
}

// WithRetry 远程调用遇到临时性错误时的最大重试次数。0 表示不重试。
func WithRetry(maxRetries int) option {
	return func(o *options) {
		o.maxRetries = max(0, maxRetries)
	}
}

// WithUploadRoutines 并发上传分片的协程数量。默认为 1，即按序号逐个上传。
func WithUploadRoutines(n int) option {
	return func(o *options) {
		o.uploadRoutines = max(1, n)
	}
}
