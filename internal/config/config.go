// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package config loads the process wide settings of the shared library
// from DFC_* environment variables and an optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	EnvPrefix = "DFC"
	// EnvConfigFile names an optional YAML/TOML/JSON file read before the
	// environment. Environment variables win.
	EnvConfigFile = "DFC_CONFIG_FILE"

	DefaultBatchSize       = 8192
	DefaultS3CacheEntries  = 64
	DefaultS3Concurrency   = 4
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	defaultLogFormatJSON   = "json"
)

type Config struct {
	Log    LogConfig    `mapstructure:"log"`
	Engine EngineConfig `mapstructure:"engine"`
	Bridge BridgeConfig `mapstructure:"bridge"`
	S3     S3Config     `mapstructure:"s3"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// Dir enables logging to rotating files in this folder. Without it
	// logs go to stderr, and only if Level was set explicitly.
	Dir string `mapstructure:"dir"`
}

type EngineConfig struct {
	// BatchSize is the number of rows per exported record batch.
	BatchSize int `mapstructure:"batch_size"`
	// Threads caps engine worker threads; 0 leaves the engine default.
	Threads int `mapstructure:"threads"`
	// MemoryLimit is passed to the engine as is, e.g. "2GB".
	MemoryLimit string `mapstructure:"memory_limit"`
	// StagingDir holds temporary files; defaults to os.TempDir().
	StagingDir string `mapstructure:"staging_dir"`
}

type BridgeConfig struct {
	// PoolSize is the number of workers running engine calls; 0 means
	// twice GOMAXPROCS.
	PoolSize int `mapstructure:"pool_size"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	CacheEntries    int    `mapstructure:"cache_entries"`
	Concurrency     int    `mapstructure:"concurrency"`
}

// Enabled reports whether s3:// URLs can be served.
func (c S3Config) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != ""
}

// JSONLogs reports whether the log format asks for JSON.
func (c LogConfig) JSONLogs() bool {
	return strings.EqualFold(c.Format, defaultLogFormatJSON)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "")
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("log.dir", "")
	v.SetDefault("engine.batch_size", DefaultBatchSize)
	v.SetDefault("engine.threads", 0)
	v.SetDefault("engine.memory_limit", "")
	v.SetDefault("engine.staging_dir", "")
	v.SetDefault("bridge.pool_size", 0)
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("s3.cache_entries", DefaultS3CacheEntries)
	v.SetDefault("s3.concurrency", DefaultS3Concurrency)
}

// Load reads the configuration. Every key is registered with a default,
// so viper's AutomaticEnv can resolve DFC_ENGINE_BATCH_SIZE to
// engine.batch_size during Unmarshal.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv(EnvConfigFile); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file %q: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, cfg.validate()
}

// Default returns the configuration with every key at its default,
// ignoring the environment.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(err)
	}
	return cfg
}

func (c *Config) validate() error {
	if c.Engine.BatchSize <= 0 {
		return fmt.Errorf("engine.batch_size must be positive, got %d", c.Engine.BatchSize)
	}
	if c.Engine.Threads < 0 {
		return fmt.Errorf("engine.threads must not be negative, got %d", c.Engine.Threads)
	}
	if c.Bridge.PoolSize < 0 {
		return fmt.Errorf("bridge.pool_size must not be negative, got %d", c.Bridge.PoolSize)
	}
	if c.S3.CacheEntries <= 0 {
		c.S3.CacheEntries = DefaultS3CacheEntries
	}
	if c.S3.Concurrency <= 0 {
		c.S3.Concurrency = DefaultS3Concurrency
	}
	switch strings.ToLower(c.Log.Format) {
	case DefaultLogFormat, defaultLogFormatJSON:
	default:
		return fmt.Errorf("log.format must be %q or %q, got %q", DefaultLogFormat, defaultLogFormatJSON, c.Log.Format)
	}
	return nil
}
