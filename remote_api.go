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
	"time"
)

// PrecreateResult 预上传结果。
type PrecreateResult struct {
	// UploadId 本次上传的标识，后续分片上传和创建文件都需要携带。
	UploadId string
	// RequiredSlices 服务端还需要的分片序号。
	RequiredSlices []int64
	// ReturnType 1 表示需要上传分片，2 表示服务端已存在相同内容。
	ReturnType int
}

// FileMeta 远程文件信息。
type FileMeta struct {
	// FsId 文件 ID。
	FsId uint64
	// Path 文件的绝对路径。
	Path string
	// Size 文件大小。
	Size int64
	// Md5 文件内容摘要。
	Md5 string
	// Category 文件分类。
	Category int
	// IsDir 是否为目录。
	IsDir bool
	// Ctime 创建时间。
	Ctime time.Time
	// Mtime 修改时间。
	Mtime time.Time
}

type RemoteStorage interface {
	// Precreate 预上传，登记上传意图。blockList 是按序号排列的分片摘要。
	Precreate(ctx context.Context, destPath string, size int64, blockList []string) (*PrecreateResult, error)

	// UploadSlice 上传分片，返回服务端计算的分片摘要。
	UploadSlice(ctx context.Context, destPath, uploadId string, sequence int64, content []byte) (string, error)

	// CreateFile 合并已上传的分片，创建文件。同名文件会被覆盖。
	CreateFile(ctx context.Context, destPath string, size int64, blockList []string, uploadId string) (
		*FileMeta, error)
}
