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
	"fmt"
	"strings"
)

// SliceStrategy 文件切分方式。
type SliceStrategy int

const (
	// SliceLogical 逻辑切分，分片只记录源文件中的字节区间，不复制数据。
	SliceLogical SliceStrategy = iota
	// SlicePhysical 物理切分，每个分片写入临时目录下独立的文件。
	SlicePhysical
)

// Slice 文件分片，表示源文件中一段连续的字节区间。
type Slice struct {
	// Sequence 分片序号，从 0 开始连续递增，决定上传和 block_list 的顺序。
	Sequence int64
	// Length 分片字节数。除最后一个分片外都等于名义分片大小。
	Length int64
	// Digest 分片内容的 MD5 摘要，十六进制小写。
	Digest string

	nominal int64
	path    string
	temp    bool
}

type Slicer interface {
	// Split 将文件切分为按序号排列的分片。totalSize 是文件大小，sliceSize 是名义分片大小。
	Split(ctx context.Context, filePath string, totalSize, sliceSize int64) ([]*Slice, error)
}

func (s SliceStrategy) String() string {
	switch s {
	case SliceLogical:
		return "logical"
	case SlicePhysical:
		return "physical"
	default:
		return fmt.Sprintf("SliceStrategy(%d)", int(s))
	}
}

// ParseSliceStrategy 解析切分方式名称。
func ParseSliceStrategy(name string) (SliceStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "logical":
		return SliceLogical, nil
	case "physical":
		return SlicePhysical, nil
	default:
		return 0, &ConfigurationError{Field: "strategy", Reason: fmt.Sprintf("unknown slice strategy %q", name)}
	}
}

// Offset 分片在源文件中的起始偏移量。
func (s *Slice) Offset() int64 {
	return s.Sequence * s.nominal
}

// Path 保存分片数据的文件。逻辑切分时为源文件。
func (s *Slice) Path() string {
	return s.path
}

// Temporary 分片数据是否保存在临时文件中。
func (s *Slice) Temporary() bool {
	return s.temp
}

// PlanSlices 根据文件大小和名义分片大小生成分片计划。生成的分片没有摘要，也没有关联文件。
//
// 名义分片大小小于 MinSliceSize 时返回 *ConfigurationError。文件不超过 MinSliceSize 时只生成一个分片。
func PlanSlices(totalSize, sliceSize int64) ([]*Slice, error) {
	if sliceSize < MinSliceSize {
		return nil, &ConfigurationError{
			Field:  "slice size",
			Reason: fmt.Sprintf("%d is less than the minimum %d", sliceSize, MinSliceSize),
		}
	}
	if totalSize < 0 {
		return nil, &ConfigurationError{Field: "file size", Reason: fmt.Sprintf("%d is negative", totalSize)}
	}

	// 小文件不切分。
	if totalSize <= smallFileThreshold {
		return []*Slice{{Sequence: 0, Length: totalSize, nominal: totalSize}}, nil
	}

	count := (totalSize + sliceSize - 1) / sliceSize
	slices := make([]*Slice, count)
	for i := int64(0); i < count; i++ {
		slices[i] = &Slice{
			Sequence: i,
			Length:   min(sliceSize, totalSize-i*sliceSize),
			nominal:  sliceSize,
		}
	}

	return slices, nil
}
