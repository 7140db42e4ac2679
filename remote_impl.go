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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	xpanFilePath  = "/rest/2.0/xpan/file"
	superfilePath = "/rest/2.0/pcs/superfile2"
	// 文件命名策略：覆盖同名文件。
	renameOverwrite = "3"
)

type remoteImpl struct {
	*baseImpl
}

// Precreate 预上传，登记上传意图。
func (c *remoteImpl) Precreate(ctx context.Context, destPath string, size int64, blockList []string) (
	*PrecreateResult, error) {

	const op = "precreate"
	if len(destPath) <= 0 {
		return nil, &ConfigurationError{Field: "path", Reason: "remote path is empty"}
	}

	// 生成请求体。
	query := url.Values{}
	query.Set("method", "precreate")
	form := url.Values{}
	form.Set("path", destPath)
	form.Set("size", strconv.FormatInt(size, 10))
	form.Set("isdir", "0")
	form.Set("rtype", renameOverwrite)
	form.Set("autoinit", "1")
	form.Set("block_list", encodeBlockList(blockList))

	var result *PrecreateResult
	err := c.retry(ctx, op, func() error {
		req, err := c.genFormReq(ctx, c.panHost, xpanFilePath, query, form)
		if err != nil {
			return err
		}
		rspBody, err := c.sendHttp(op, req)
		if err != nil {
			return err
		}

		// 解析响应体。
		var rspData struct {
			errnoRsp
			UploadId   string  `json:"uploadid"`
			ReturnType int     `json:"return_type"`
			BlockList  []int64 `json:"block_list"`
		}
		if err = decode(op, rspBody, &rspData); err != nil {
			return err
		}
		if err = checkErrno(op, rspBody, rspData.Errno); err != nil {
			return err
		}
		if len(rspData.UploadId) <= 0 {
			return &ProtocolError{Op: op, StatusCode: http.StatusOK, Errno: rspData.Errno,
				RawResponse: string(rspBody), Err: errors.New("uploadid is empty")}
		}

		result = &PrecreateResult{
			UploadId:       rspData.UploadId,
			RequiredSlices: rspData.BlockList,
			ReturnType:     rspData.ReturnType,
		}
		return nil
	})

	return result, err
}

// UploadSlice 上传分片。
func (c *remoteImpl) UploadSlice(ctx context.Context, destPath, uploadId string, sequence int64,
	content []byte) (string, error) {

	const op = "upload slice"
	if len(uploadId) <= 0 {
		return "", &ConfigurationError{Field: "uploadid", Reason: "upload id is empty"}
	}

	// 生成请求体。
	query := url.Values{}
	query.Set("method", "upload")
	query.Set("type", "tmpfile")
	query.Set("path", destPath)
	query.Set("uploadid", uploadId)
	query.Set("partseq", strconv.FormatInt(sequence, 10))
	reqBody, contentType := encodeMultipart(content)

	var remoteMd5 string
	err := c.retry(ctx, op, func() error {
		req, err := c.genReq(ctx, http.MethodPost, c.pcsHost, superfilePath, query, bytes.NewReader(reqBody),
			contentType)
		if err != nil {
			return err
		}
		rspBody, err := c.sendHttp(op, req)
		if err != nil {
			return err
		}

		// 解析响应体。没有 error_code 表示成功。
		var rspData struct {
			Md5       string `json:"md5"`
			ErrorCode *int   `json:"error_code"`
			ErrorMsg  string `json:"error_msg"`
		}
		if err = decode(op, rspBody, &rspData); err != nil {
			return err
		}
		if rspData.ErrorCode != nil && *rspData.ErrorCode != 0 {
			return &ProtocolError{Op: op, StatusCode: http.StatusOK, Errno: rspData.ErrorCode,
				RawResponse: string(rspBody), Err: errors.New(rspData.ErrorMsg)}
		}
		if len(rspData.Md5) <= 0 {
			return &ProtocolError{Op: op, StatusCode: http.StatusOK, RawResponse: string(rspBody),
				Err: errors.New("md5 is empty")}
		}

		remoteMd5 = rspData.Md5
		return nil
	})

	return remoteMd5, err
}

// CreateFile 合并已上传的分片，创建文件。
func (c *remoteImpl) CreateFile(ctx context.Context, destPath string, size int64, blockList []string,
	uploadId string) (*FileMeta, error) {

	const op = "create"
	if len(uploadId) <= 0 {
		return nil, &ConfigurationError{Field: "uploadid", Reason: "upload id is empty"}
	}

	// 生成请求体。
	query := url.Values{}
	query.Set("method", "create")
	form := url.Values{}
	form.Set("path", destPath)
	form.Set("size", strconv.FormatInt(size, 10))
	form.Set("isdir", "0")
	form.Set("rtype", renameOverwrite)
	form.Set("block_list", encodeBlockList(blockList))
	form.Set("uploadid", uploadId)

	var meta *FileMeta
	err := c.retry(ctx, op, func() error {
		req, err := c.genFormReq(ctx, c.panHost, xpanFilePath, query, form)
		if err != nil {
			return err
		}
		rspBody, err := c.sendHttp(op, req)
		if err != nil {
			return err
		}

		// 解析响应体。
		var rspData struct {
			errnoRsp
			FsId     uint64 `json:"fs_id"`
			Md5      string `json:"md5"`
			Path     string `json:"path"`
			Size     int64  `json:"size"`
			Ctime    int64  `json:"ctime"`
			Mtime    int64  `json:"mtime"`
			IsDir    int    `json:"isdir"`
			Category int    `json:"category"`
		}
		if err = decode(op, rspBody, &rspData); err != nil {
			return err
		}
		if err = checkErrno(op, rspBody, rspData.Errno); err != nil {
			return err
		}

		meta = &FileMeta{
			FsId:     rspData.FsId,
			Path:     rspData.Path,
			Size:     rspData.Size,
			Md5:      rspData.Md5,
			Category: rspData.Category,
			IsDir:    rspData.IsDir == 1,
			Ctime:    time.Unix(rspData.Ctime, 0),
			Mtime:    time.Unix(rspData.Mtime, 0),
		}
		return nil
	})

	return meta, err
}

// 分片摘要列表编码为 JSON 数组。
func encodeBlockList(blockList []string) string {
	if blockList == nil {
		blockList = []string{}
	}
	bs, _ := json.Marshal(blockList)
	return string(bs)
}
