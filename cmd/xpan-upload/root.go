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
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	xpan "gitee.com/ivfzhou/xpan-upload-api"
	"gitee.com/ivfzhou/xpan-upload-api/internal/config"
)

// 命令行参数。
type cliFlags struct {
	accessToken string
	file        string
	chunkSize   int64
	resume      bool
	retry       int
	strategy    string
	tmpDir      string
	remoteDir   string
	configPath  string
	verbose     bool
}

// 已经输出过的错误。
type reportedError struct {
	error
}

var (
	flags cliFlags
	// 为空时使用默认 HTTP 客户端。
	httpClient *http.Client
)

var rootCmd = &cobra.Command{
	Use:           "xpan-upload",
	Short:         "分片上传本地文件到网盘",
	Long:          "将本地文件切分为分片，经过预上传、分片上传、创建文件三个步骤上传到网盘，并校验每个分片的摘要。",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		start := time.Now()
		meta, err := upload(cmd.Context(), flags)
		pterm.Info.Printfln("Upload took %v", time.Since(start))
		if err != nil {
			pterm.Error.Printfln("%s: %v", xpan.Kind(err), err)
			return &reportedError{err}
		}
		pterm.Success.Printfln("Upload successful: %s, %s, md5 %s",
			meta.Path, humanize.IBytes(uint64(meta.Size)), meta.Md5)
		return nil
	},
}

func init() {
	fs := rootCmd.Flags()
	fs.StringVarP(&flags.accessToken, "access-token", "a", "", "授权凭证 (默认读取 XPAN_ACCESS_TOKEN 或配置文件)")
	fs.StringVarP(&flags.file, "file", "f", "", "要上传的文件路径")
	fs.Int64VarP(&flags.chunkSize, "chunk-size", "c", 10, "分片大小 (MiB)，不能小于 4")
	fs.BoolVarP(&flags.resume, "resume", "r", false, "断点续传 (尚未支持)")
	fs.IntVar(&flags.retry, "retry", 0, "远程调用遇到网络错误或服务端错误时的重试次数 (默认不重试)")
	fs.StringVar(&flags.strategy, "strategy", "logical", "切分方式: logical|physical")
	fs.StringVar(&flags.tmpDir, "tmp-dir", "", "物理切分时分片文件的保存目录 (默认系统临时目录)")
	fs.StringVar(&flags.remoteDir, "remote-dir", "", "文件上传到的远程目录 (默认 "+xpan.RemoteDir+")")
	fs.StringVar(&flags.configPath, "config", "", "配置文件路径 (默认 ~/.xpan/config.yaml)")
	fs.BoolVarP(&flags.verbose, "verbose", "v", false, "详细输出")
	_ = rootCmd.MarkFlagRequired("file")
}

// Execute 执行根命令，返回进程退出码。
func Execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			pterm.Error.Println(err)
		}
		return 1
	}
	return 0
}

// 解析配置并上传文件。
func upload(ctx context.Context, f cliFlags) (*xpan.FileMeta, error) {
	// 先校验参数，再读取文件。
	if f.chunkSize > math.MaxInt64/(1024*1024) || f.chunkSize*1024*1024 < xpan.MinSliceSize {
		return nil, &xpan.ConfigurationError{
			Field:  "chunk size",
			Reason: fmt.Sprintf("%dMiB is out of range, must be at least 4MiB", f.chunkSize),
		}
	}
	strategy, err := xpan.ParseSliceStrategy(f.strategy)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(config.Config{
		AccessToken: f.accessToken,
		RemoteDir:   f.remoteDir,
		TempDir:     f.tmpDir,
	}, f.configPath)
	if err != nil {
		return nil, err
	}

	logger := newLogger(f.verbose)
	defer func() { _ = logger.Sync() }()

	bar := &progressBar{}
	client := xpan.NewClient(cfg.AccessToken,
		xpan.WithHttpClient(httpClient),
		xpan.WithEndpoints(cfg.PanHost, cfg.PcsHost),
		xpan.WithRemoteDir(cfg.RemoteDir),
		xpan.WithRetry(f.retry),
		xpan.WithLogger(logger),
		xpan.WithProgress(bar.update),
	)

	return client.Upload(ctx, &xpan.UploadRequest{
		FilePath:  f.file,
		SliceSize: f.chunkSize * 1024 * 1024,
		Strategy:  strategy,
		TempDir:   cfg.TempDir,
		Resume:    f.resume,
	})
}

// 创建日志。非详细模式下只输出警告以上级别。
func newLogger(verbose bool) *zap.Logger {
	var cfg zap.Config
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func (e *reportedError) Unwrap() error { return e.error }
