package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"Melodix/logger"

	"github.com/fsnotify/fsnotify"
)

// Watcher 监听曲库文件，文件被写入、创建或重命名后触发一次完整重建
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(ctx context.Context)
	fsw      *fsnotify.Watcher
}

// NewWatcher watches the directory containing path, so editors that replace
// the file through a rename are still picked up.
func NewWatcher(path string, debounce time.Duration, onChange func(ctx context.Context)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	return &Watcher{
		path:     abs,
		debounce: debounce,
		onChange: onChange,
		fsw:      fsw,
	}, nil
}

// Run blocks until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	logger.Info("[Library] 开始监听曲库文件", logger.String("path", w.path))

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug("[Library] 曲库文件变化", logger.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("[Library] 文件监听错误", logger.ErrorField(err))
		case <-fire:
			fire = nil
			// 文件被移走后没有新文件补上时保留当前索引
			if _, err := os.Stat(w.path); err != nil {
				logger.Warn("[Library] 曲库文件不存在，跳过重建",
					logger.String("path", w.path), logger.ErrorField(err))
				continue
			}
			w.onChange(ctx)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
