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
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

const (
	// 计算摘要时读缓冲的大小。
	digestBufferSize = 1024 * 1024
	// 物理切分时读写缓冲的最大值。
	copyBufferSize = 100 * 1024
)

var bytesPool = sync.Pool{New: func() any { return make([]byte, digestBufferSize) }}

// 获取字节数组。
func makeBytes() []byte {
	return bytesPool.Get().([]byte)
}

// 回收字节数组。
func rollbackBytes(data []byte) {
	if cap(data) != digestBufferSize {
		return
	}
	bytesPool.Put(data[:cap(data)])
}

// 读取响应体并关闭。
func readAndClose(rsp *http.Response) ([]byte, error) {
	if rsp == nil || rsp.Body == nil {
		return nil, nil
	}
	defer closeRsp(rsp)
	return io.ReadAll(rsp.Body)
}

// 关闭流。
func closeIO(closer io.Closer) {
	if closer != nil {
		printError(closer.Close())
	}
}

// 关闭 HTTP 响应对象的响应体。
func closeRsp(r *http.Response) {
	if r != nil && r.Body != nil {
		printError(r.Body.Close())
	}
}

// 向标准错误输出流打印错误信息。
func printError(err error) {
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "xpan-upload-api: %v\n", err)
	}
}

// 生成远程文件路径。
func suitRemotePath(dir, filePath string) string {
	dir = "/" + strings.Trim(path.Clean("/"+filepath.ToSlash(dir)), "/")
	return path.Join(dir, filepath.Base(filePath))
}

// 将分片数据编码为 multipart 请求体，字段名为 file。
func encodeMultipart(content []byte) ([]byte, string) {
	var buf bytes.Buffer
	buf.Grow(len(content) + 512)
	w := multipart.NewWriter(&buf)
	part, _ := w.CreateFormFile("file", "blob")
	_, _ = part.Write(content)
	_ = w.Close()
	return buf.Bytes(), w.FormDataContentType()
}
