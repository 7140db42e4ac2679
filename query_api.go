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
)

type Querier interface {
	// Exist 远程文件是否存在。
	Exist(ctx context.Context, remotePath string) (bool, error)

	// ListFiles 获取目录下的文件列表。start 是起始位置，limit 不大于 0 时使用接口默认值。
	ListFiles(ctx context.Context, dir string, start, limit int) ([]*FileMeta, error)
}
