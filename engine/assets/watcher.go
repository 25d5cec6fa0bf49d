package assets

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/reactor/engine/core"
)

const shaderExt = ".spv"

var ErrWatcherClosed = errors.New("shader watcher already closed")

// ShaderWatcher publishes a ShaderChangedEvent, carrying the file's base
// name, whenever a compiled shader under the watched directory is created
// or rewritten.
type ShaderWatcher struct {
	logger core.Logger
	events *core.EventBus

	mutex    sync.Mutex
	isClosed bool
	started  bool
	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
}

func NewShaderWatcher(logger core.Logger, events *core.EventBus) (*ShaderWatcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &ShaderWatcher{
		logger:   logger,
		events:   events,
		fsnotify: fsWatch,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}, nil
}

// Start watches dir and every directory below it.
func (sw *ShaderWatcher) Start(dir string) error {
	sw.mutex.Lock()
	defer sw.mutex.Unlock()
	if sw.isClosed {
		return ErrWatcherClosed
	}
	if err := sw.watchRecursive(dir); err != nil {
		return err
	}
	if !sw.started {
		sw.started = true
		go sw.start()
	}
	sw.logger.Infof("watching %s for shader changes", dir)
	return nil
}

// Close stops the watcher and waits for its goroutine. Safe to call twice.
func (sw *ShaderWatcher) Close() error {
	sw.mutex.Lock()
	if sw.isClosed {
		sw.mutex.Unlock()
		return nil
	}
	sw.isClosed = true
	started := sw.started
	sw.mutex.Unlock()

	close(sw.done)
	err := sw.fsnotify.Close()
	if started {
		<-sw.stopped
	}
	return err
}

func (sw *ShaderWatcher) start() {
	defer close(sw.stopped)
	for {
		select {
		case e, ok := <-sw.fsnotify.Events:
			if !ok {
				return
			}
			sw.handleEvent(e)

		case err, ok := <-sw.fsnotify.Errors:
			if !ok {
				return
			}
			sw.logger.Errorf("shader watcher: %s", err)

		case <-sw.done:
			return
		}
	}
}

func (sw *ShaderWatcher) handleEvent(e fsnotify.Event) {
	if e.Has(fsnotify.Create) {
		if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
			sw.mutex.Lock()
			if err := sw.watchRecursive(e.Name); err != nil {
				sw.logger.Warnf("cannot watch %s: %s", e.Name, err)
			}
			sw.mutex.Unlock()
			return
		}
	}
	if !e.Has(fsnotify.Create) && !e.Has(fsnotify.Write) {
		return
	}
	if filepath.Ext(e.Name) != shaderExt {
		return
	}
	name := filepath.Base(e.Name)
	sw.logger.Debugf("shader changed: %s", name)
	if !sw.events.PublishShaderChanged(core.ShaderChangedEvent{Path: name}) {
		sw.logger.Warnf("shader change dropped: %s", name)
	}
}

// watchRecursive adds all directories under path to the watch list.
func (sw *ShaderWatcher) watchRecursive(path string) error {
	return filepath.WalkDir(path, func(walkPath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return sw.fsnotify.Add(walkPath)
		}
		return nil
	})
}
