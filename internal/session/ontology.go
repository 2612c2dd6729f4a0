package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ontology holds the base clause text pre-consulted into new sessions. The
// file is watched so edits apply to sessions created afterwards; existing
// sessions keep the text they were created with.
type ontology struct {
	path   string
	logger *zap.Logger

	text    atomic.Pointer[string]
	watcher *fsnotify.Watcher
	done    chan struct{}
}

func newOntology(path string, logger *zap.Logger) (*ontology, error) {
	o := &ontology{
		path:   path,
		logger: logger,
		done:   make(chan struct{}),
	}
	o.reload()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create ontology watcher: %w", err)
	}
	// Watch the directory: editors replace files on save, which drops a
	// watch registered on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch ontology directory: %w", err)
	}
	o.watcher = watcher

	go o.run()
	return o, nil
}

// Text returns the current ontology clause text.
func (o *ontology) Text() string {
	if p := o.text.Load(); p != nil {
		return *p
	}
	return ""
}

func (o *ontology) run() {
	for {
		select {
		case event, ok := <-o.watcher.Events:
			if !ok {
				return
			}
			if event.Name != o.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				o.reload()
			}
		case err, ok := <-o.watcher.Errors:
			if !ok {
				return
			}
			o.logger.Warn("ontology watcher error", zap.Error(err))
		case <-o.done:
			return
		}
	}
}

func (o *ontology) reload() {
	data, err := os.ReadFile(o.path)
	if err != nil {
		if !os.IsNotExist(err) {
			o.logger.Warn("failed to read ontology file",
				zap.String("path", o.path),
				zap.Error(err))
		}
		empty := ""
		o.text.Store(&empty)
		return
	}
	text := string(data)
	o.text.Store(&text)
	o.logger.Info("ontology loaded",
		zap.String("path", o.path),
		zap.Int("bytes", len(text)))
}

func (o *ontology) Close() {
	close(o.done)
	if o.watcher != nil {
		o.watcher.Close()
	}
}
