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
	"os"
	"sort"
	"sync"
	"time"

	gu "gitee.com/ivfzhou/goroutine-util"
	"go.uber.org/zap"
)

type uploadImpl struct {
	*baseImpl
	RemoteStorage
}

// 进度通知，串行调用回调。
type progressNotifier struct {
	mu       sync.Mutex
	fn       func(Progress)
	progress Progress
}

// UploadFromDisk 使用默认参数上传本地文件。
func (c *uploadImpl) UploadFromDisk(ctx context.Context, filePath string) (*FileMeta, error) {
	return c.Upload(ctx, &UploadRequest{FilePath: filePath})
}

// Upload 上传本地文件。
//
// 任何一步失败都会终止整个上传，不自动续传。物理切分产生的临时文件在创建文件之后删除，失败时也会删除。
func (c *uploadImpl) Upload(ctx context.Context, req *UploadRequest) (meta *FileMeta, err error) {
	if req == nil || len(req.FilePath) <= 0 {
		return nil, &ConfigurationError{Field: "file", Reason: "file path is empty"}
	}
	sliceSize := req.SliceSize
	if sliceSize == 0 {
		sliceSize = SliceSize
	}
	if sliceSize < MinSliceSize {
		return nil, &ConfigurationError{
			Field:  "slice size",
			Reason: "must be at least 4MiB",
		}
	}
	if req.Resume {
		c.logger.Warn("resume is not supported yet, every slice will be uploaded", zap.String("file", req.FilePath))
	}

	start := time.Now()
	s := &session{Phase: PhaseInit}
	notifier := &progressNotifier{fn: c.progress, progress: Progress{Sequence: -1}}
	defer func() {
		if err != nil {
			if terr := s.transit(PhaseFailed); terr != nil {
				c.logger.Warn("transit to failed phase", zap.Error(terr))
			}
			notifier.phase(PhaseFailed)
			c.logger.Error("upload failed", zap.String("file", req.FilePath), zap.String("uploadid", s.UploadId),
				zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		}
		c.cleanup(s)
	}()

	// 1. 预上传。
	if err = c.precreate(ctx, s, req, sliceSize); err != nil {
		return nil, err
	}
	notifier.init(len(s.Slices), s.Target.Size)
	notifier.phase(PhasePrecreated)

	// 2. 上传分片。
	if err = c.uploadSlices(ctx, s, notifier); err != nil {
		return nil, err
	}
	notifier.phase(PhaseSlicesUploaded)

	// 3. 创建文件。
	meta, err = c.CreateFile(ctx, s.Target.DestPath, s.Target.Size, s.Target.BlockList, s.UploadId)
	if err != nil {
		return nil, err
	}
	if err = s.transit(PhaseFinalized); err != nil {
		return nil, err
	}
	notifier.phase(PhaseFinalized)
	c.logger.Info("upload finished", zap.String("path", meta.Path), zap.Uint64("fs_id", meta.FsId),
		zap.Int64("size", meta.Size), zap.Duration("elapsed", time.Since(start)))

	return meta, nil
}

// 切分文件，计算摘要，预上传。
func (c *uploadImpl) precreate(ctx context.Context, s *session, req *UploadRequest, sliceSize int64) error {
	// 获取文件信息。
	info, err := os.Stat(req.FilePath)
	if err != nil {
		return &IoError{Op: "stat", Path: req.FilePath, Err: err}
	}
	if !info.Mode().IsRegular() {
		return &IoError{Op: "stat", Path: req.FilePath, Err: errors.New("not a regular file")}
	}
	s.Target = &uploadTarget{
		SourcePath: req.FilePath,
		Size:       info.Size(),
		DestPath:   suitRemotePath(c.remoteDir, req.FilePath),
	}

	// 切分文件。
	slicer := newSlicer(req.Strategy, req.TempDir, c.logger)
	s.Slices, err = slicer.Split(ctx, req.FilePath, s.Target.Size, sliceSize)
	if err != nil {
		return err
	}
	for _, v := range s.Slices {
		if v.Temporary() {
			s.TempFiles = append(s.TempFiles, v.Path())
		}
	}

	// 计算摘要。
	if err = digestSlices(ctx, s.Slices); err != nil {
		return err
	}

	// 按序号排序，保证 block_list 与分片序号一致。
	sort.Slice(s.Slices, func(i, j int) bool { return s.Slices[i].Sequence < s.Slices[j].Sequence })
	s.Target.BlockList = make([]string, len(s.Slices))
	for i, v := range s.Slices {
		s.Target.BlockList[i] = v.Digest
	}

	rsp, err := c.Precreate(ctx, s.Target.DestPath, s.Target.Size, s.Target.BlockList)
	if err != nil {
		return err
	}
	s.UploadId = rsp.UploadId
	s.RequiredSlices = rsp.RequiredSlices
	if err = s.transit(PhasePrecreated); err != nil {
		return err
	}
	c.logger.Info("precreated", zap.String("path", s.Target.DestPath), zap.String("uploadid", s.UploadId),
		zap.Int("slices", len(s.Slices)), zap.Int("required", len(s.RequiredSlices)),
		zap.Stringer("strategy", req.Strategy))

	return nil
}

// 上传所有分片，并校验服务端回传的摘要。
func (c *uploadImpl) uploadSlices(ctx context.Context, s *session, notifier *progressNotifier) error {
	upload := func(ctx context.Context, v *Slice) error {
		content, err := v.Read()
		if err != nil {
			return err
		}
		c.logger.Debug("uploading slice", zap.Int64("seq", v.Sequence), zap.Int64("size", v.Length),
			zap.String("md5", v.Digest))
		remoteMd5, err := c.UploadSlice(ctx, s.Target.DestPath, s.UploadId, v.Sequence, content)
		if err != nil {
			return err
		}
		if remoteMd5 != v.Digest {
			return &IntegrityMismatchError{Sequence: v.Sequence, Expected: v.Digest, Received: remoteMd5}
		}
		notifier.slice(v)
		return nil
	}

	if c.uploadRoutines <= 1 {
		for _, v := range s.Slices {
			if err := upload(ctx, v); err != nil {
				return err
			}
		}
	} else {
		run, wait := gu.NewRunner(ctx, c.uploadRoutines, upload)
		for _, v := range s.Slices {
			if err := run(v, false); err != nil {
				_ = wait(false)
				return err
			}
		}
		if err := wait(true); err != nil {
			_ = wait(false) // 等待所有协程退出。
			return err
		}
	}

	return s.transit(PhaseSlicesUploaded)
}

// 删除物理切分产生的临时文件。只有一个分片时分片就是源文件，不能删除。
func (c *uploadImpl) cleanup(s *session) {
	if len(s.TempFiles) <= 1 {
		return
	}
	for _, v := range s.TempFiles {
		if err := os.Remove(v); err != nil && !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("remove slice file failed", zap.String("file", v), zap.Error(err))
		}
	}
	c.logger.Debug("slice files removed", zap.Int("count", len(s.TempFiles)))
}

// 并发计算分片摘要，协程数量不超过 NumRoutines。
func digestSlices(ctx context.Context, slices []*Slice) error {
	run, wait := gu.NewRunner(ctx, max(1, NumRoutines), func(_ context.Context, v *Slice) (err error) {
		v.Digest, err = v.Sum()
		return
	})
	for _, v := range slices {
		if err := run(v, false); err != nil {
			_ = wait(false)
			return err
		}
	}
	if err := wait(true); err != nil {
		_ = wait(false)
		return err
	}
	return nil
}

func (n *progressNotifier) init(total int, size int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.progress.Total = total
	n.progress.Size = size
}

func (n *progressNotifier) phase(p Phase) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.progress.Phase = p
	n.progress.Sequence = -1
	n.notify()
}

func (n *progressNotifier) slice(s *Slice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.progress.Sequence = s.Sequence
	n.progress.Uploaded++
	n.progress.UploadedBytes += s.Length
	n.notify()
}

func (n *progressNotifier) notify() {
	if n.fn != nil {
		n.fn(n.progress)
	}
}
