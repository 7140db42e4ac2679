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
	"errors"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"
)

// 目录不存在时接口返回的错误码。
const errnoDirNotExist = -9

type queryImpl struct {
	*baseImpl
}

// Exist 远程文件是否存在。
func (c *queryImpl) Exist(ctx context.Context, remotePath string) (bool, error) {
	remotePath = path.Clean(remotePath)
	if len(remotePath) <= 0 || remotePath == "/" || remotePath == "." {
		return false, &ConfigurationError{Field: "path", Reason: "remote path is invalid"}
	}

	const limit = 1000
	for start := 0; ; start += limit {
		files, err := c.ListFiles(ctx, path.Dir(remotePath), start, limit)
		if err != nil {
			var protocolErr *ProtocolError
			if errors.As(err, &protocolErr) && protocolErr.Errno != nil && *protocolErr.Errno == errnoDirNotExist {
				return false, nil
			}
			return false, err
		}
		for _, v := range files {
			if v.Path == remotePath {
				return true, nil
			}
		}
		if len(files) < limit {
			return false, nil
		}
	}
}

// ListFiles 获取目录下的文件列表。
func (c *queryImpl) ListFiles(ctx context.Context, dir string, start, limit int) ([]*FileMeta, error) {
	const op = "list"

	// 创建请求参数。
	query := url.Values{}
	query.Set("method", "list")
	query.Set("dir", path.Clean("/"+dir))
	query.Set("order", "name")
	query.Set("start", strconv.Itoa(max(0, start)))
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var files []*FileMeta
	err := c.retry(ctx, op, func() error {
		req, err := c.genReq(ctx, http.MethodGet, c.panHost, xpanFilePath, query, nil, "")
		if err != nil {
			return err
		}
		rspBody, err := c.sendHttp(op, req)
		if err != nil {
			return err
		}

		// 解析响应体。
		type entry struct {
			FsId     uint64 `json:"fs_id"`
			Path     string `json:"path"`
			Size     int64  `json:"size"`
			Md5      string `json:"md5"`
			IsDir    int    `json:"isdir"`
			Category int    `json:"category"`
			Ctime    int64  `json:"server_ctime"`
			Mtime    int64  `json:"server_mtime"`
		}
		var rspData struct {
			errnoRsp
			List []entry `json:"list"`
		}
		if err = decode(op, rspBody, &rspData); err != nil {
			return err
		}
		if err = checkErrno(op, rspBody, rspData.Errno); err != nil {
			return err
		}

		// 组装文件信息。
		files = make([]*FileMeta, len(rspData.List))
		for i, v := range rspData.List {
			files[i] = &FileMeta{
				FsId:     v.FsId,
				Path:     v.Path,
				Size:     v.Size,
				Md5:      v.Md5,
				Category: v.Category,
				IsDir:    v.IsDir == 1,
				Ctime:    time.Unix(v.Ctime, 0),
				Mtime:    time.Unix(v.Mtime, 0),
			}
		}
		return nil
	})

	return files, err
}
