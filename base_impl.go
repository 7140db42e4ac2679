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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

type baseImpl struct {
	accessToken string
	options
}

// 接口响应中的公共字段。
type errnoRsp struct {
	Errno     *int   `json:"errno"`
	Errmsg    string `json:"errmsg"`
	RequestId any    `json:"request_id"`
}

// Ping 测试连接，并校验授权凭证是否有效。
func (c *baseImpl) Ping(ctx context.Context) error {
	const op = "uinfo"
	query := url.Values{}
	query.Set("method", "uinfo")

	return c.retry(ctx, op, func() error {
		req, err := c.genReq(ctx, http.MethodGet, c.panHost, "/rest/2.0/xpan/nas", query, nil, "")
		if err != nil {
			return err
		}
		rspBody, err := c.sendHttp(op, req)
		if err != nil {
			return err
		}
		var rspData errnoRsp
		if err = decode(op, rspBody, &rspData); err != nil {
			return err
		}
		return checkErrno(op, rspBody, rspData.Errno)
	})
}

// 生成 HTTP 请求体。请求参数中附带授权凭证。
func (c *baseImpl) genReq(ctx context.Context, method, host, reqPath string, query url.Values, body io.Reader,
	contentType string) (*http.Request, error) {

	// 生成 URL。
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("access_token", c.accessToken)
	schema := "https"
	if c.insecure {
		schema = "http"
	}
	u := fmt.Sprintf("%s://%s%s?%s", schema, host, reqPath, q.Encode())

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, &ConfigurationError{Field: "endpoint", Reason: err.Error()}
	}
	if len(contentType) > 0 {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("User-Agent", "pan.baidu.com")

	return req, nil
}

// 生成表单 POST 请求体。
func (c *baseImpl) genFormReq(ctx context.Context, host, reqPath string, query, form url.Values) (
	*http.Request, error) {

	return c.genReq(ctx, http.MethodPost, host, reqPath, query, strings.NewReader(form.Encode()),
		"application/x-www-form-urlencoded")
}

// 发送 HTTP 请求，返回响应体。
func (c *baseImpl) sendHttp(op string, req *http.Request) ([]byte, error) {
	rsp, err := c.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	if rsp == nil {
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("http response object is nil")}
	}

	rspBody, err := readAndClose(rsp)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}

	// 非成功的响应码就返回错误。
	if !(rsp.StatusCode >= 200 && rsp.StatusCode < 300) {
		return nil, &ProtocolError{Op: op, StatusCode: rsp.StatusCode, RawResponse: string(rspBody)}
	}

	return rspBody, nil
}

// 解析响应体。
func decode(op string, rspBody []byte, v any) error {
	if err := json.Unmarshal(rspBody, v); err != nil {
		return &ProtocolError{Op: op, StatusCode: http.StatusOK, RawResponse: string(rspBody), Err: err}
	}
	return nil
}

// 校验错误码，errno 必须存在且为 0。
func checkErrno(op string, rspBody []byte, errno *int) error {
	if errno == nil || *errno != 0 {
		return &ProtocolError{Op: op, StatusCode: http.StatusOK, Errno: errno, RawResponse: string(rspBody)}
	}
	return nil
}
