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
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"os"
)

// DigestRange 计算文件 [start, start+size) 区间内容的 MD5 摘要，十六进制小写。
//
// 使用固定 1MiB 缓冲读取，内存占用与区间大小无关。区间未能完整读取时返回 *IoError。
func DigestRange(filePath string, start, size int64) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", &IoError{Op: "open", Path: filePath, Err: err}
	}
	defer closeIO(f)

	if _, err = f.Seek(start, io.SeekStart); err != nil {
		return "", &IoError{Op: "seek", Path: filePath, Err: err}
	}

	buf := makeBytes()
	defer rollbackBytes(buf)
	hash := md5.New()
	for remaining := size; remaining > 0; {
		n, err := io.ReadFull(f, buf[:min(remaining, int64(len(buf)))])
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return "", &IoError{Op: "read", Path: filePath, Err: err}
		}
		hash.Write(buf[:n])
		remaining -= int64(n)
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// DigestFile 计算整个文件的 MD5 摘要。
func DigestFile(filePath string) (string, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return "", &IoError{Op: "stat", Path: filePath, Err: err}
	}
	return DigestRange(filePath, 0, info.Size())
}
