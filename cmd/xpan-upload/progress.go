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
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"

	xpan "gitee.com/ivfzhou/xpan-upload-api"
)

// 分片上传进度条。
type progressBar struct {
	bar *pterm.ProgressbarPrinter
}

// 处理上传进度。回调由客户端串行调用。
func (p *progressBar) update(progress xpan.Progress) {
	// 分片确认。
	if progress.Sequence >= 0 {
		if p.bar != nil {
			p.bar.Increment()
		}
		return
	}

	switch progress.Phase {
	case xpan.PhasePrecreated:
		title := fmt.Sprintf("Uploading %s", humanize.IBytes(uint64(progress.Size)))
		bar, err := pterm.DefaultProgressbar.WithTotal(progress.Total).WithTitle(title).Start()
		if err != nil {
			return
		}
		p.bar = bar
	case xpan.PhaseSlicesUploaded, xpan.PhaseFinalized, xpan.PhaseFailed:
		p.stop()
	}
}

func (p *progressBar) stop() {
	if p.bar != nil {
		_, _ = p.bar.Stop()
		p.bar = nil
	}
}
