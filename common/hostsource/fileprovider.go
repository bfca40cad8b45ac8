/*
Copyright 2025-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package hostsource

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/couchbase/zkensemble/common/ensemble"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// HostsFile is the on-disk format read by FileProvider.
type HostsFile struct {
	Hosts []ensemble.Host `yaml:"hosts"`
}

// ParseHostsFile decodes a YAML hosts file.
func ParseHostsFile(data []byte) ([]ensemble.Host, error) {
	var file HostsFile
	err := yaml.Unmarshal(data, &file)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse hosts file")
	}
	return file.Hosts, nil
}

type FileProviderOptions struct {
	Path   string
	Logger *zap.Logger
}

// FileProvider reads the host pool from a YAML file and follows changes to
// it.  The parent directory is watched rather than the file itself so that
// editors replacing the file through a rename are picked up.
type FileProvider struct {
	path   string
	logger *zap.Logger

	lock      sync.Mutex
	fsWatcher *fsnotify.Watcher
	watchers  map[uuid.UUID]chan []ensemble.Host
	lastHosts []ensemble.Host
}

var _ Provider = (*FileProvider)(nil)

func NewFileProvider(opts FileProviderOptions) (*FileProvider, error) {
	if opts.Path == "" {
		return nil, errors.New("hosts file path must be specified")
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	absPath, err := filepath.Abs(opts.Path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve hosts file path")
	}

	return &FileProvider{
		path:     absPath,
		logger:   logger,
		watchers: make(map[uuid.UUID]chan []ensemble.Host),
	}, nil
}

func (p *FileProvider) Get(ctx context.Context) ([]ensemble.Host, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read hosts file")
	}

	return ParseHostsFile(data)
}

func (p *FileProvider) Watch(ctx context.Context) (<-chan []ensemble.Host, error) {
	hosts, err := p.Get(ctx)
	if err != nil {
		return nil, err
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	if p.fsWatcher == nil {
		err := p.startWatcherLocked()
		if err != nil {
			return nil, err
		}
		p.lastHosts = hosts
	}

	id := uuid.New()
	outputCh := make(chan []ensemble.Host, 1)
	outputCh <- copyHosts(hosts)
	p.watchers[id] = outputCh

	go func() {
		<-ctx.Done()
		p.unsubscribe(id)
	}()

	return outputCh, nil
}

// Close stops watching the file and closes every outstanding watch.
func (p *FileProvider) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()

	for id, ch := range p.watchers {
		close(ch)
		delete(p.watchers, id)
	}

	if p.fsWatcher == nil {
		return nil
	}

	err := p.fsWatcher.Close()
	p.fsWatcher = nil
	return err
}

func (p *FileProvider) unsubscribe(id uuid.UUID) {
	p.lock.Lock()
	defer p.lock.Unlock()

	ch, ok := p.watchers[id]
	if !ok {
		return
	}

	close(ch)
	delete(p.watchers, id)
}

func (p *FileProvider) startWatcherLocked() error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}

	err = fsWatcher.Add(filepath.Dir(p.path))
	if err != nil {
		_ = fsWatcher.Close()
		return errors.Wrap(err, "failed to watch hosts file directory")
	}

	p.fsWatcher = fsWatcher
	go p.watchLoop(fsWatcher)

	return nil
}

func (p *FileProvider) watchLoop(fsWatcher *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != p.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			p.reload()
		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return
			}
			p.logger.Warn("hosts file watcher error", zap.Error(err))
		}
	}
}

func (p *FileProvider) reload() {
	hosts, err := p.Get(context.Background())
	if err != nil {
		// a half written file is expected while an editor saves, the next
		// write event will carry the complete file
		p.logger.Warn("ignoring unreadable hosts file",
			zap.String("path", p.path),
			zap.Error(err))
		return
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	if hostsEqual(hosts, p.lastHosts) {
		return
	}
	p.lastHosts = hosts

	p.logger.Info("hosts file changed",
		zap.String("path", p.path),
		zap.Int("hosts", len(hosts)))

	for _, ch := range p.watchers {
		sendLatest(ch, copyHosts(hosts))
	}
}

func hostsEqual(a, b []ensemble.Host) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Address != b[i].Address || a[i].Domain != b[i].Domain || a[i].Name != b[i].Name {
			return false
		}
		if len(a[i].Ports) != len(b[i].Ports) {
			return false
		}
		for name, port := range a[i].Ports {
			if b[i].Ports[name] != port {
				return false
			}
		}
	}
	return true
}
