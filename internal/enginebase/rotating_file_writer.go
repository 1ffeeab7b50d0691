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

package enginebase

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	defaultFilePrefix    = "dfc"
	defaultFileExt       = ".jsonl"
	defaultFileSizeMaxKb = int64(1024)
	defaultFileCountMax  = 100
)

type rotatingFileConfig struct {
	folderPath    string
	filePrefix    string
	fileExt       string
	fileSizeMaxKb int64
	fileCountMax  int
}

// RotatingFileOption configures a RotatingFileWriter.
type RotatingFileOption func(*rotatingFileConfig)

// WithFolderPath sets the folder files are written to. Defaults to
// <user config dir>/.dfc/<ext without dot>.
func WithFolderPath(path string) RotatingFileOption {
	return func(cfg *rotatingFileConfig) { cfg.folderPath = path }
}

func WithFilePrefix(prefix string) RotatingFileOption {
	return func(cfg *rotatingFileConfig) { cfg.filePrefix = prefix }
}

// WithFileExt sets the file extension, including the leading dot.
func WithFileExt(ext string) RotatingFileOption {
	return func(cfg *rotatingFileConfig) { cfg.fileExt = ext }
}

func WithFileSizeMaxKb(kb int64) RotatingFileOption {
	return func(cfg *rotatingFileConfig) { cfg.fileSizeMaxKb = kb }
}

func WithFileCountMax(n int) RotatingFileOption {
	return func(cfg *rotatingFileConfig) { cfg.fileCountMax = n }
}

func newRotatingFileConfig(options ...RotatingFileOption) (cfg rotatingFileConfig, err error) {
	cfg = rotatingFileConfig{
		filePrefix:    defaultFilePrefix,
		fileExt:       defaultFileExt,
		fileSizeMaxKb: defaultFileSizeMaxKb,
		fileCountMax:  defaultFileCountMax,
	}
	for _, opt := range options {
		opt(&cfg)
	}

	if strings.TrimSpace(cfg.filePrefix) == "" {
		cfg.filePrefix = defaultFilePrefix
	}
	if !strings.HasPrefix(cfg.fileExt, ".") {
		cfg.fileExt = "." + cfg.fileExt
	}
	if strings.TrimSpace(cfg.folderPath) == "" {
		userConfigDir, err := os.UserConfigDir()
		if err != nil {
			return cfg, err
		}
		cfg.folderPath = filepath.Join(userConfigDir, ".dfc", strings.TrimPrefix(cfg.fileExt, "."))
	}
	if err = os.MkdirAll(cfg.folderPath, 0o755); err != nil {
		return
	}

	// fail early if the folder is not writable
	scratch, err := os.CreateTemp(cfg.folderPath, cfg.filePrefix)
	if err != nil {
		return
	}
	_ = scratch.Close()
	_ = os.Remove(scratch.Name())

	cfg.fileSizeMaxKb = max(1, cfg.fileSizeMaxKb)
	cfg.fileCountMax = max(1, cfg.fileCountMax)
	return
}

// RotatingFileWriter appends to files named
// "<prefix>-<UTC timestamp><ext>" in one folder. Once the current file
// reaches the size limit a new one is started, and the oldest files are
// removed so that at most the configured number remain. It is safe for
// concurrent use, since both the logger and the trace exporter may write
// to it.
type RotatingFileWriter struct {
	cfg rotatingFileConfig

	mu      sync.Mutex
	current *os.File
}

func NewRotatingFileWriter(options ...RotatingFileOption) (*RotatingFileWriter, error) {
	cfg, err := newRotatingFileConfig(options...)
	if err != nil {
		return nil, err
	}
	return &RotatingFileWriter{cfg: cfg}, nil
}

func (w *RotatingFileWriter) FolderPath() string { return w.cfg.folderPath }
func (w *RotatingFileWriter) FilePrefix() string { return w.cfg.filePrefix }

func (w *RotatingFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.rotateIfFull(); err != nil {
		return 0, err
	}
	if err := w.ensureOpen(); err != nil {
		return 0, err
	}
	return w.current.Write(p)
}

// Stat describes the file currently written to.
func (w *RotatingFileWriter) Stat() (fs.FileInfo, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		return nil, errors.New("no file is open")
	}
	return w.current.Stat()
}

func (w *RotatingFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		return nil
	}
	err := w.current.Close()
	w.current = nil
	return err
}

// Clear closes the writer and removes every file it owns.
func (w *RotatingFileWriter) Clear() error {
	if err := w.Close(); err != nil {
		return err
	}
	files, err := w.files()
	if err != nil {
		return err
	}
	var errs []error
	for _, f := range files {
		errs = append(errs, os.Remove(f))
	}
	return errors.Join(errs...)
}

func (w *RotatingFileWriter) sizeLimit() int64 {
	return w.cfg.fileSizeMaxKb * 1024
}

func (w *RotatingFileWriter) rotateIfFull() error {
	if w.current == nil {
		return nil
	}
	info, err := w.current.Stat()
	if err != nil {
		return err
	}
	if info.Size() < w.sizeLimit() {
		return nil
	}
	if err := w.current.Close(); err != nil {
		return err
	}
	w.current = nil
	return w.pruneOldFiles()
}

func (w *RotatingFileWriter) ensureOpen() error {
	if w.current != nil {
		return nil
	}

	// keep appending to the newest file if it still has room
	if files, err := w.files(); err == nil && len(files) > 0 {
		last := files[len(files)-1]
		if info, err := os.Stat(last); err == nil && info.Size() < w.sizeLimit() {
			if f, err := os.OpenFile(last, os.O_APPEND|os.O_WRONLY, 0o666); err == nil {
				w.current = f
				return nil
			}
		}
	}

	name := w.cfg.filePrefix + "-" + time.Now().UTC().Format("2006-01-02-15-04-05.000000000") + w.cfg.fileExt
	f, err := os.OpenFile(filepath.Join(w.cfg.folderPath, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o666)
	if err != nil {
		return err
	}
	w.current = f
	return nil
}

func (w *RotatingFileWriter) pruneOldFiles() error {
	files, err := w.files()
	if err != nil {
		return err
	}
	// the file about to be created counts against the limit
	excess := len(files) + 1 - w.cfg.fileCountMax
	for i := 0; i < excess && i < len(files); i++ {
		if err := os.Remove(files[i]); err != nil {
			return err
		}
	}
	return nil
}

// files lists the writer's files oldest first; the timestamp in the name
// sorts lexicographically and filepath.Glob returns sorted results.
func (w *RotatingFileWriter) files() ([]string, error) {
	return filepath.Glob(filepath.Join(w.cfg.folderPath, w.cfg.filePrefix+"-*"+w.cfg.fileExt))
}
