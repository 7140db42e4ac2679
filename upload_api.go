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
)

// Phase 上传阶段。
type Phase int

const (
	// PhaseInit 尚未预上传。
	PhaseInit Phase = iota
	// PhasePrecreated 已预上传，获得 upload id。
	PhasePrecreated
	// PhaseSlicesUploaded 所有分片都已上传并校验通过。
	PhaseSlicesUploaded
	// PhaseFinalized 文件已创建。
	PhaseFinalized
	// PhaseFailed 上传失败。不会再离开该阶段。
	PhaseFailed
)

// UploadRequest 上传请求。
type UploadRequest struct {
	// FilePath 本地文件路径。
	FilePath string
	// SliceSize 名义分片大小，不能小于 MinSliceSize。为 0 时使用 SliceSize。
	SliceSize int64
	// Strategy 切分方式。默认逻辑切分。
	Strategy SliceStrategy
	// TempDir 物理切分时分片文件的保存目录。
	TempDir string
	// Resume 断点续传。尚未支持，设置后依然上传所有分片。
	Resume bool
}

// uploadTarget 待上传的文件。
type uploadTarget struct {
	// SourcePath 本地文件路径。
	SourcePath string
	// Size 文件大小。
	Size int64
	// DestPath 远程文件路径。
	DestPath string
	// BlockList 按序号排列的分片摘要。
	BlockList []string
}

// session 一次上传的状态。只属于一次上传，不在多次上传间共享。
type session struct {
	UploadId string
	Phase    Phase
	Target   *uploadTarget
	Slices   []*Slice
	// RequiredSlices 预上传时服务端返回的需要上传的分片序号。
	RequiredSlices []int64
	// TempFiles 物理切分产生的临时文件。
	TempFiles []string
}

// Progress 上传进度。
type Progress struct {
	Phase Phase
	// Sequence 刚确认上传成功的分片序号，没有时为 -1。
	Sequence int64
	// Uploaded 已确认的分片数。
	Uploaded int
	// Total 分片总数。
	Total int
	// UploadedBytes 已确认的字节数。
	UploadedBytes int64
	// Size 文件大小。
	Size int64
}

type Uploader interface {
	// Upload 上传本地文件：预上传、逐个上传分片并校验摘要、创建文件。
	Upload(ctx context.Context, req *UploadRequest) (*FileMeta, error)

	// UploadFromDisk 使用默认分片大小和逻辑切分上传本地文件。
	UploadFromDisk(ctx context.Context, filePath string) (*FileMeta, error)
}

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhasePrecreated:
		return "precreated"
	case PhaseSlicesUploaded:
		return "slices uploaded"
	case PhaseFinalized:
		return "finalized"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// 阶段转换。任何未结束的阶段都可以转为 PhaseFailed。
func (s *session) transit(to Phase) error {
	ok := false
	switch to {
	case PhasePrecreated:
		ok = s.Phase == PhaseInit
	case PhaseSlicesUploaded:
		ok = s.Phase == PhasePrecreated
	case PhaseFinalized:
		ok = s.Phase == PhaseSlicesUploaded
	case PhaseFailed:
		ok = s.Phase != PhaseFinalized && s.Phase != PhaseFailed
	}
	if !ok {
		return fmt.Errorf("illegal phase transition from %v to %v", s.Phase, to)
	}
	s.Phase = to
	return nil
}
