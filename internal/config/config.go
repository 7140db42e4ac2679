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

// Package config 解析命令行工具的凭证和配置。
//
// 优先级：命令行参数 > 环境变量 > 配置文件。
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	xpan "gitee.com/ivfzhou/xpan-upload-api"
)

// EnvPrefix 环境变量前缀，如 XPAN_ACCESS_TOKEN。
const EnvPrefix = "XPAN"

type Config struct {
	// AccessToken 授权凭证。
	AccessToken string `envconfig:"ACCESS_TOKEN" yaml:"access_token"`
	// RemoteDir 文件上传到的远程目录。
	RemoteDir string `envconfig:"REMOTE_DIR" yaml:"remote_dir"`
	// TempDir 物理切分时分片文件的保存目录。
	TempDir string `envconfig:"TMP_DIR" yaml:"tmp_dir"`
	// PanHost 预上传与创建文件接口的域名。
	PanHost string `envconfig:"PAN_HOST" yaml:"pan_host"`
	// PcsHost 分片上传接口的域名。
	PcsHost string `envconfig:"PCS_HOST" yaml:"pcs_host"`
}

// DefaultPath 默认配置文件路径 ~/.xpan/config.yaml。
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".xpan", "config.yaml"), nil
}

// Load 合并命令行参数、环境变量和配置文件。configPath 为空时使用默认路径，默认文件不存在时忽略。
//
// 缺少授权凭证时返回 *xpan.ConfigurationError。
func Load(flags Config, configPath string) (*Config, error) {
	var env Config
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return nil, &xpan.ConfigurationError{Field: "environment", Reason: err.Error()}
	}

	file, err := loadFile(configPath)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AccessToken: first(flags.AccessToken, env.AccessToken, file.AccessToken),
		RemoteDir:   first(flags.RemoteDir, env.RemoteDir, file.RemoteDir),
		TempDir:     first(flags.TempDir, env.TempDir, file.TempDir),
		PanHost:     first(flags.PanHost, env.PanHost, file.PanHost),
		PcsHost:     first(flags.PcsHost, env.PcsHost, file.PcsHost),
	}
	if len(cfg.AccessToken) <= 0 {
		return nil, &xpan.ConfigurationError{
			Field:  "access token",
			Reason: fmt.Sprintf("not given by flag, %s_ACCESS_TOKEN or config file", EnvPrefix),
		}
	}

	return cfg, nil
}

// 读取配置文件。
func loadFile(configPath string) (*Config, error) {
	explicit := len(configPath) > 0
	if !explicit {
		var err error
		if configPath, err = DefaultPath(); err != nil {
			return &Config{}, nil
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, &xpan.IoError{Op: "read", Path: configPath, Err: err}
	}

	cfg := &Config{}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, &xpan.ConfigurationError{Field: "config file", Reason: fmt.Sprintf("%s: %v", configPath, err)}
	}
	return cfg, nil
}

// 返回第一个非空值。
func first(values ...string) string {
	for _, v := range values {
		if len(v) > 0 {
			return v
		}
	}
	return ""
}
