package out

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"habitkit/internal/modules/challenge/domain"
	challengeout "habitkit/internal/modules/challenge/port/out"
)

type catalogFile struct {
	Challenges []domain.Challenge `yaml:"challenges"`
}

// YAMLCatalog reads challenge metadata from a YAML file. A missing file is
// an empty catalog.
type YAMLCatalog struct {
	path     string
	debounce time.Duration
}

func NewYAMLCatalog(path string) challengeout.CatalogSource {
	return &YAMLCatalog{path: path, debounce: 200 * time.Millisecond}
}

func (c *YAMLCatalog) Load(_ context.Context) ([]domain.Challenge, error) {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []domain.Challenge{}, nil
		}
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	file := catalogFile{}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", c.path, err)
	}
	return file.Challenges, nil
}

// Watch observes the catalog's directory (editors replace files rather than
// writing in place) and debounces bursts of events into one onChange call.
func (c *YAMLCatalog) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create catalog watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch catalog dir: %w", err)
	}

	target := filepath.Clean(c.path)
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(c.debounce)
			} else {
				timer.Reset(c.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			onChange()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("catalog watcher: %w", err)
		}
	}
}
