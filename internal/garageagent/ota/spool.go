package ota

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/autopeer-io/garage-agent/pkg/log"
)

const (
	imageExt    = ".bin"
	checksumExt = ".sha256"
	rejectedExt = ".rejected"
)

// Spool offers images dropped into a directory. Uploaders write to a
// temporary name and rename to *.bin when complete; an optional
// <image>.sha256 file next to it carries the expected digest.
type Spool struct {
	dir    string
	logger log.Logger

	watcher *fsnotify.Watcher
	pending []string
}

var _ Source = (*Spool)(nil)

func NewSpool(dir string, logger log.Logger) *Spool {
	return &Spool{dir: dir, logger: logger}
}

func (s *Spool) Name() string { return "spool" }

func (s *Spool) Begin(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(s.dir); err != nil {
		_ = w.Close()
		return err
	}
	s.watcher = w

	existing, err := filepath.Glob(filepath.Join(s.dir, "*"+imageExt))
	if err != nil {
		return err
	}
	for _, p := range existing {
		s.enqueue(p)
	}
	return nil
}

func (s *Spool) enqueue(path string) {
	if !strings.HasSuffix(path, imageExt) {
		return
	}
	for _, p := range s.pending {
		if p == path {
			return
		}
	}
	s.pending = append(s.pending, path)
}

// drain moves the watcher's buffered events into the pending queue.
func (s *Spool) drain() {
	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) {
				s.enqueue(ev.Name)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error(err, "Spool watcher error", "dir", s.dir)
		default:
			return
		}
	}
}

func (s *Spool) Next(ctx context.Context) (*Offer, error) {
	if s.watcher == nil {
		return nil, nil
	}
	s.drain()

	for len(s.pending) > 0 {
		path := s.pending[0]
		s.pending = s.pending[1:]

		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		return &Offer{
			Source: s.Name(),
			Name:   filepath.Base(path),
			Size:   info.Size(),
			SHA256: readChecksum(path + checksumExt),
			Open: func(ctx context.Context) (io.ReadCloser, error) {
				return os.Open(path)
			},
			Finish: func(installed bool) {
				s.finish(path, installed)
			},
		}, nil
	}
	return nil, nil
}

// finish removes an installed image and sets a failed one aside so it is not
// offered again.
func (s *Spool) finish(path string, installed bool) {
	if installed {
		_ = os.Remove(path)
		_ = os.Remove(path + checksumExt)
		return
	}
	if err := os.Rename(path, path+rejectedExt); err != nil {
		s.logger.Error(err, "Failed to set rejected image aside", "path", path)
	}
}

func (s *Spool) Close() error {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Close()
}

// readChecksum returns the first field of a sha256sum style file.
func readChecksum(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
