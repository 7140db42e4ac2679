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

package main

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xpan "gitee.com/ivfzhou/xpan-upload-api"
)

// 简单的网盘服务端，收集上传的分片。
type panServer struct {
	mu     sync.Mutex
	slices map[string][]byte
	calls  map[string]int
	// 预上传先返回的 503 次数。
	unavailable int
}

func (s *panServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	method := r.URL.Query().Get("method")
	s.calls[method]++
	w.Header().Set("Content-Type", "application/json")

	switch method {
	case "precreate":
		if s.unavailable > 0 {
			s.unavailable--
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, `{"errno":0,"uploadid":"P1-cli","return_type":1,"block_list":[0,1,2]}`)
	case "upload":
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		_ = file.Close()
		s.slices[r.URL.Query().Get("partseq")] = data
		sum := md5.Sum(data)
		_, _ = fmt.Fprintf(w, `{"md5":%q}`, hex.EncodeToString(sum[:]))
	case "create":
		_ = r.ParseForm()
		var content []byte
		for i := 0; i < len(s.slices); i++ {
			content = append(content, s.slices[fmt.Sprint(i)]...)
		}
		sum := md5.Sum(content)
		_, _ = fmt.Fprintf(w, `{"errno":0,"fs_id":1,"path":%q,"size":%d,"md5":%q,"ctime":1,"mtime":1,"isdir":0}`,
			r.PostForm.Get("path"), len(content), hex.EncodeToString(sum[:]))
	default:
		http.NotFound(w, r)
	}
}

func init() {
	xpan.RetryInitialInterval = time.Millisecond
}

func newPanServer(t *testing.T) *panServer {
	ps := &panServer{slices: map[string][]byte{}, calls: map[string]int{}}
	server := httptest.NewTLSServer(ps)
	t.Cleanup(server.Close)

	httpClient = server.Client()
	t.Cleanup(func() { httpClient = nil })
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XPAN_ACCESS_TOKEN", "cli-token")
	t.Setenv("XPAN_PAN_HOST", server.Listener.Addr().String())
	t.Setenv("XPAN_PCS_HOST", server.Listener.Addr().String())
	return ps
}

func makeFile(t *testing.T, size int) string {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i * 31)
	}
	p := filepath.Join(t.TempDir(), "cli.bin")
	require.NoError(t, os.WriteFile(p, data, 0o600))
	return p
}

func TestUpload(t *testing.T) {
	t.Run("分片大小过小", func(t *testing.T) {
		ps := newPanServer(t)
		_, err := upload(context.Background(), cliFlags{
			file:      filepath.Join(t.TempDir(), "not-exist.bin"),
			chunkSize: 3,
			strategy:  "logical",
		})
		var configErr *xpan.ConfigurationError
		require.ErrorAs(t, err, &configErr)
		assert.Equal(t, "configuration error", xpan.Kind(err))
		assert.Empty(t, ps.calls)
	})

	t.Run("分片大小溢出", func(t *testing.T) {
		ps := newPanServer(t)
		_, err := upload(context.Background(), cliFlags{
			file:      makeFile(t, 1),
			chunkSize: 17592186044420,
			strategy:  "logical",
		})
		var configErr *xpan.ConfigurationError
		require.ErrorAs(t, err, &configErr)
		assert.Empty(t, ps.calls)
	})

	t.Run("默认不重试", func(t *testing.T) {
		ps := newPanServer(t)
		ps.unavailable = 1
		_, err := upload(context.Background(), cliFlags{file: makeFile(t, 1024), chunkSize: 4, strategy: "logical"})
		var protocolErr *xpan.ProtocolError
		require.ErrorAs(t, err, &protocolErr)
		assert.Equal(t, http.StatusServiceUnavailable, protocolErr.StatusCode)
		assert.Equal(t, 1, ps.calls["precreate"])
		assert.Equal(t, 0, ps.calls["upload"])
	})

	t.Run("指定重试次数", func(t *testing.T) {
		ps := newPanServer(t)
		ps.unavailable = 2
		meta, err := upload(context.Background(), cliFlags{file: makeFile(t, 1024), chunkSize: 4,
			strategy: "logical", retry: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(1024), meta.Size)
		assert.Equal(t, 3, ps.calls["precreate"])
	})

	t.Run("切分方式错误", func(t *testing.T) {
		newPanServer(t)
		_, err := upload(context.Background(), cliFlags{file: makeFile(t, 1), chunkSize: 4, strategy: "zip"})
		var configErr *xpan.ConfigurationError
		require.ErrorAs(t, err, &configErr)
	})

	t.Run("物理切分上传", func(t *testing.T) {
		ps := newPanServer(t)
		tmpDir := filepath.Join(t.TempDir(), "parts")
		meta, err := upload(context.Background(), cliFlags{
			file:      makeFile(t, 9*1024*1024),
			chunkSize: 4,
			strategy:  "physical",
			tmpDir:    tmpDir,
			remoteDir: "/apps/cli",
		})
		require.NoError(t, err)
		assert.Equal(t, "/apps/cli/cli.bin", meta.Path)
		assert.Equal(t, int64(9*1024*1024), meta.Size)
		assert.Equal(t, 1, ps.calls["precreate"])
		assert.Equal(t, 3, ps.calls["upload"])
		assert.Equal(t, 1, ps.calls["create"])

		entries, _ := os.ReadDir(tmpDir)
		assert.Empty(t, entries)
	})
}

func TestExecute(t *testing.T) {
	ps := newPanServer(t)
	p := makeFile(t, 1024)

	rootCmd.SetArgs([]string{"-f", p, "-c", "4", "--remote-dir", "/apps/cli"})
	assert.Equal(t, 0, Execute(context.Background()))
	assert.Equal(t, 1, ps.calls["upload"])

	rootCmd.SetArgs([]string{"-f", p, "-c", "2"})
	assert.Equal(t, 1, Execute(context.Background()))
	assert.Equal(t, 1, ps.calls["upload"])
}
