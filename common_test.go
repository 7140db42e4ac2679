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

package xpan_test

import (
	"crypto/md5"
	crand "crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	xpan "gitee.com/ivfzhou/xpan-upload-api"
)

const (
	accessToken = "access_token_for_test"
	panHost     = "pan.example.com"
	pcsHost     = "pcs.example.com"
	mib         = 1024 * 1024
)

var CloseCount int32

type mockTransport struct {
	fn func(*http.Request) (*http.Response, error)
}

type readCloser struct {
	closeFlag int32
	data      []byte
}

// 模拟网盘服务端。
type fakePan struct {
	t *testing.T

	// 预上传响应中的 errno，为空时响应中不带 errno。
	precreateErrno string
	// 创建文件响应中的 errno。
	createErrno int
	// 服务端收到后会被篡改的分片序号。
	corrupt map[int64]bool
	// 预上传处理完成后调用。
	afterPrecreate func()

	mu             sync.Mutex
	uploadId       string
	blockList      []string
	size           int64
	slices         map[int64][]byte
	uploadOrder    []int64
	precreateCalls int32
	uploadCalls    int32
	createCalls    int32
}

func init() {
	xpan.RetryInitialInterval = time.Millisecond
}

func NewReader(data []byte) io.ReadCloser {
	atomic.AddInt32(&CloseCount, 1)
	return &readCloser{data: data}
}

func MockHttpClient(fn func(*http.Request) (*http.Response, error)) *http.Client {
	return &http.Client{
		Transport: &mockTransport{
			fn: fn,
		},
	}
}

func JsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       NewReader([]byte(body)),
	}
}

func MakeBytesWithSize(n int) []byte {
	data := make([]byte, n)
	n, err := crand.Read(data)
	if err != nil || n != len(data) {
		panic("rand.Read fail")
	}
	return data
}

// MakeFile 在临时目录中生成指定大小的随机内容文件。
func MakeFile(t *testing.T, name string, size int) (string, []byte) {
	t.Helper()
	data := MakeBytesWithSize(size)
	filePath := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(filePath, data, 0o600); err != nil {
		t.Fatalf("unexpected error: want nil, got %v", err)
	}
	return filePath, data
}

func Md5Hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

func NewFakePan(t *testing.T) *fakePan {
	return &fakePan{
		t:              t,
		precreateErrno: "0",
		corrupt:        map[int64]bool{},
		uploadId:       "N1-MTAuMTQ0LjE2Ni4xOToxNzI5MDY2NDkyOjg1MzY0NzI4OTM1NDAzNjc2MDA=",
		slices:         map[int64][]byte{},
	}
}

func (m *mockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.fn(req)
}

func (rc *readCloser) Read(p []byte) (int, error) {
	if len(rc.data) <= 0 {
		return 0, io.EOF
	}
	n := copy(p, rc.data)
	rc.data = rc.data[n:]
	if len(rc.data) <= 0 {
		return n, io.EOF
	}
	return n, nil
}

func (rc *readCloser) Close() error {
	if atomic.CompareAndSwapInt32(&rc.closeFlag, 0, 1) {
		atomic.AddInt32(&CloseCount, -1)
		return nil
	}
	return fmt.Errorf("reader already closed")
}

// Client 创建连接到模拟服务端的客户端。
func (f *fakePan) Client() xpan.Api {
	return xpan.NewClient(accessToken, xpan.WithHttpClient(f.HttpClient()),
		xpan.WithEndpoints(panHost, pcsHost), xpan.WithRemoteDir("/apps/test"))
}

func (f *fakePan) HttpClient() *http.Client {
	return MockHttpClient(f.handle)
}

// Content 按序号拼接服务端收到的分片。
func (f *fakePan) Content() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	seqs := make([]int64, 0, len(f.slices))
	for k := range f.slices {
		seqs = append(seqs, k)
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
	var content []byte
	for _, v := range seqs {
		content = append(content, f.slices[v]...)
	}
	return content
}

func (f *fakePan) handle(req *http.Request) (*http.Response, error) {
	t := f.t
	if got := req.URL.Query().Get("access_token"); got != accessToken {
		t.Errorf("unexpected access token: want %v, got %v", accessToken, got)
	}
	if req.Method != http.MethodPost {
		t.Errorf("unexpected method: want %v, got %v", http.MethodPost, req.Method)
	}
	select {
	case <-req.Context().Done():
		return nil, req.Context().Err()
	default:
	}

	switch {
	case req.URL.Host == panHost && req.URL.Path == "/rest/2.0/xpan/file":
		switch method := req.URL.Query().Get("method"); method {
		case "precreate":
			return f.precreate(req)
		case "create":
			return f.create(req)
		default:
			t.Errorf("unexpected method: %v", method)
		}
	case req.URL.Host == pcsHost && req.URL.Path == "/rest/2.0/pcs/superfile2":
		return f.upload(req)
	default:
		t.Errorf("unexpected request: %v", req.URL)
	}
	return JsonResponse(http.StatusNotFound, `{"errno":2}`), nil
}

func (f *fakePan) precreate(req *http.Request) (*http.Response, error) {
	t := f.t
	atomic.AddInt32(&f.precreateCalls, 1)
	if err := req.ParseForm(); err != nil {
		t.Errorf("unexpected error: want nil, got %v", err)
	}
	for k, v := range map[string]string{"isdir": "0", "rtype": "3", "autoinit": "1"} {
		if got := req.PostForm.Get(k); got != v {
			t.Errorf("unexpected %s: want %v, got %v", k, v, got)
		}
	}
	size, err := strconv.ParseInt(req.PostForm.Get("size"), 10, 64)
	if err != nil {
		t.Errorf("unexpected error: want nil, got %v", err)
	}
	var blockList []string
	if err = json.Unmarshal([]byte(req.PostForm.Get("block_list")), &blockList); err != nil {
		t.Errorf("unexpected error: want nil, got %v", err)
	}

	f.mu.Lock()
	f.size = size
	f.blockList = blockList
	f.mu.Unlock()

	required := make([]int, len(blockList))
	for i := range required {
		required[i] = i
	}
	bs, _ := json.Marshal(required)
	if f.afterPrecreate != nil {
		f.afterPrecreate()
	}
	errno := ""
	if len(f.precreateErrno) > 0 {
		errno = `"errno":` + f.precreateErrno + `,`
	}
	return JsonResponse(http.StatusOK, fmt.Sprintf(`{%s"path":%q,"uploadid":%q,"return_type":1,"block_list":%s,"request_id":1}`,
		errno, req.PostForm.Get("path"), f.uploadId, bs)), nil
}

func (f *fakePan) upload(req *http.Request) (*http.Response, error) {
	t := f.t
	atomic.AddInt32(&f.uploadCalls, 1)
	query := req.URL.Query()
	for k, v := range map[string]string{"method": "upload", "type": "tmpfile", "uploadid": f.uploadId} {
		if got := query.Get(k); got != v {
			t.Errorf("unexpected %s: want %v, got %v", k, v, got)
		}
	}
	seq, err := strconv.ParseInt(query.Get("partseq"), 10, 64)
	if err != nil {
		t.Errorf("unexpected error: want nil, got %v", err)
	}
	if err = req.ParseMultipartForm(32 * mib); err != nil {
		t.Errorf("unexpected error: want nil, got %v", err)
		return JsonResponse(http.StatusBadRequest, `{"error_code":31023}`), nil
	}
	fhs := req.MultipartForm.File["file"]
	if len(fhs) != 1 {
		t.Errorf("unexpected file part count: want 1, got %v", len(fhs))
		return JsonResponse(http.StatusBadRequest, `{"error_code":31023}`), nil
	}
	file, err := fhs[0].Open()
	if err != nil {
		t.Errorf("unexpected error: want nil, got %v", err)
		return JsonResponse(http.StatusBadRequest, `{"error_code":31023}`), nil
	}
	data, err := io.ReadAll(file)
	_ = file.Close()
	if err != nil {
		t.Errorf("unexpected error: want nil, got %v", err)
	}

	// 模拟传输过程中数据损坏。
	if f.corrupt[seq] && len(data) > 0 {
		data[0]++
	}

	f.mu.Lock()
	f.slices[seq] = data
	f.uploadOrder = append(f.uploadOrder, seq)
	f.mu.Unlock()

	return JsonResponse(http.StatusOK, fmt.Sprintf(`{"md5":%q,"request_id":2}`, Md5Hex(data))), nil
}

func (f *fakePan) create(req *http.Request) (*http.Response, error) {
	t := f.t
	atomic.AddInt32(&f.createCalls, 1)
	if err := req.ParseForm(); err != nil {
		t.Errorf("unexpected error: want nil, got %v", err)
	}
	if got := req.PostForm.Get("uploadid"); got != f.uploadId {
		t.Errorf("unexpected upload id: want %v, got %v", f.uploadId, got)
	}
	if got := req.PostForm.Get("rtype"); got != "3" {
		t.Errorf("unexpected rtype: want 3, got %v", got)
	}
	var blockList []string
	if err := json.Unmarshal([]byte(req.PostForm.Get("block_list")), &blockList); err != nil {
		t.Errorf("unexpected error: want nil, got %v", err)
	}

	f.mu.Lock()
	if fmt.Sprint(blockList) != fmt.Sprint(f.blockList) {
		t.Errorf("unexpected block list: want %v, got %v", f.blockList, blockList)
	}
	if len(f.slices) != len(f.blockList) {
		t.Errorf("unexpected slice count: want %v, got %v", len(f.blockList), len(f.slices))
	}
	f.mu.Unlock()

	content := f.Content()
	return JsonResponse(http.StatusOK, fmt.Sprintf(
		`{"errno":%d,"fs_id":1094775839735981,"md5":%q,"server_filename":"x","category":6,"path":%q,"size":%d,`+
			`"ctime":1729066492,"mtime":1729066492,"isdir":0,"name":%q}`,
		f.createErrno, Md5Hex(content), req.PostForm.Get("path"), len(content), req.PostForm.Get("path"))), nil
}
