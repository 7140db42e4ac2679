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
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

type logicalSlicer struct{}

type physicalSlicer struct {
	tempDir string
	logger  *zap.Logger
}

// NewSlicer 创建文件切分器。tempDir 是物理切分时分片文件的保存目录，为空时使用 os.TempDir()。
func NewSlicer(strategy SliceStrategy, tempDir string) Slicer {
	return newSlicer(strategy, tempDir, zap.NewNop())
}

func newSlicer(strategy SliceStrategy, tempDir string, logger *zap.Logger) Slicer {
	if strategy == SlicePhysical {
		if len(tempDir) <= 0 {
			tempDir = os.TempDir()
		}
		return &physicalSlicer{tempDir: tempDir, logger: logger}
	}
	return &logicalSlicer{}
}

// Split 逻辑切分文件。
func (*logicalSlicer) Split(_ context.Context, filePath string, totalSize, sliceSize int64) ([]*Slice, error) {
	slices, err := PlanSlices(totalSize, sliceSize)
	if err != nil {
		return nil, err
	}
	for _, v := range slices {
		v.path = filePath
	}
	return slices, nil
}

// Split 物理切分文件。只有一个分片时直接使用源文件，不生成临时文件。
func (s *physicalSlicer) Split(ctx context.Context, filePath string, totalSize, sliceSize int64) (
	_ []*Slice, err error) {

	slices, err := PlanSlices(totalSize, sliceSize)
	if err != nil {
		return nil, err
	}
	if len(slices) == 1 {
		slices[0].path = filePath
		return slices, nil
	}

	if err = os.MkdirAll(s.tempDir, 0o755); err != nil {
		return nil, &IoError{Op: "mkdir", Path: s.tempDir, Err: err}
	}
	src, err := os.Open(filePath)
	if err != nil {
		return nil, &IoError{Op: "open", Path: filePath, Err: err}
	}
	defer closeIO(src)

	// 出错就删除已生成的分片文件。
	defer func() {
		if err != nil {
			for _, v := range slices {
				if !v.temp {
					continue
				}
				if err := os.Remove(v.path); err != nil {
					s.logger.Warn("remove slice file failed", zap.String("file", v.path), zap.Error(err))
				}
			}
		}
	}()

	buf := make([]byte, min(sliceSize, copyBufferSize))
	base := filepath.Base(filePath)
	for _, v := range slices {
		if err = context.Cause(ctx); err != nil {
			return nil, err
		}
		slicePath := filepath.Join(s.tempDir, fmt.Sprintf("%s_%d.part", base, v.Sequence))
		if err = copySlice(src, slicePath, v, buf); err != nil {
			return nil, err
		}
	}

	return slices, nil
}

// Read 读取分片的全部字节。
func (s *Slice) Read() ([]byte, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, &IoError{Op: "open", Path: s.path, Err: err}
	}
	defer closeIO(f)

	if _, err = f.Seek(s.dataOffset(), io.SeekStart); err != nil {
		return nil, &IoError{Op: "seek", Path: s.path, Err: err}
	}

	// 一次读取未必能读完，ReadFull 会持续读到满或文件结束。
	buf := make([]byte, s.Length)
	n, err := io.ReadFull(f, buf)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			err = &TruncatedReadError{Sequence: s.Sequence, Read: int64(n), Expected: s.Length}
		}
		return nil, &IoError{Op: "read", Path: s.path, Err: err}
	}

	return buf, nil
}

// Sum 计算分片内容的摘要。
func (s *Slice) Sum() (string, error) {
	return DigestRange(s.path, s.dataOffset(), s.Length)
}

// 分片数据在所在文件中的偏移量。
func (s *Slice) dataOffset() int64 {
	if s.temp {
		return 0
	}
	return s.Offset()
}

// 从源文件当前位置复制一个分片的数据到独立文件。
func copySlice(src *os.File, slicePath string, s *Slice, buf []byte) error {
	dst, err := os.OpenFile(slicePath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return &IoError{Op: "create", Path: slicePath, Err: err}
	}
	s.path = slicePath
	s.temp = true

	left := s.Length
	for left > 0 {
		n, err := src.Read(buf[:min(left, int64(len(buf)))])
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				closeIO(dst)
				return &IoError{Op: "write", Path: slicePath, Err: err}
			}
			left -= int64(n)
		}
		if err != nil {
			if errors.Is(err, io.EOF) && left > 0 {
				err = &TruncatedReadError{Sequence: s.Sequence, Read: s.Length - left, Expected: s.Length}
			}
			if !errors.Is(err, io.EOF) {
				closeIO(dst)
				return &IoError{Op: "read", Path: src.Name(), Err: err}
			}
		}
	}

	if err = dst.Close(); err != nil {
		return &IoError{Op: "close", Path: slicePath, Err: err}
	}
	return nil
}
