package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/nbody/engine/core"
)

// SHADER_EXTENSION is appended to a shader name to find its compiled SPIR-V.
const SHADER_EXTENSION = ".spv"

type ShaderInfo struct {
	Path       string
	Name       string
	LastLoaded time.Time
	// Set when the file changed on disk after it was last loaded.
	Dirty bool
}

/**
 * @brief Loads compiled SPIR-V shaders from a directory and tracks changes
 * made to them while the simulation runs.
 */
type ShaderStore struct {
	dir     string
	shaders map[string]ShaderInfo

	mutex sync.RWMutex
}

func NewShaderStore(dir string) (*ShaderStore, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: shader directory: %w", core.ErrSetupFailed, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", core.ErrSetupFailed, dir)
	}
	return &ShaderStore{
		dir:     dir,
		shaders: make(map[string]ShaderInfo),
	}, nil
}

func (s *ShaderStore) Dir() string {
	return s.dir
}

// Load reads and decodes the shader called name, e.g. "particle.comp".
func (s *ShaderStore) Load(name string) ([]uint32, error) {
	path := filepath.Join(s.dir, name+SHADER_EXTENSION)
	code, err := LoadSPIRV(path)
	if err != nil {
		core.LogError("failed to load shader '%s': %s", name, err.Error())
		return nil, err
	}

	s.mutex.Lock()
	s.shaders[name] = ShaderInfo{
		Path:       path,
		Name:       name,
		LastLoaded: time.Now(),
	}
	s.mutex.Unlock()

	core.LogDebug("Loaded shader '%s' (%d words)", name, len(code))
	return code, nil
}

// Changed returns the loaded shaders modified on disk since the previous
// call, sorted by name, and clears their dirty flag.
func (s *ShaderStore) Changed() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var names []string
	for name, info := range s.shaders {
		if info.Dirty {
			names = append(names, name)
			info.Dirty = false
			s.shaders[name] = info
		}
	}
	sort.Strings(names)
	return names
}

// Watch follows the shader directory until ctx is done. It only marks
// shaders as changed; pipelines are never rebuilt while running.
func (s *ShaderStore) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.dir, err)
	}
	core.LogDebug("Watching shaders in %s", s.dir)

	for {
		select {
		case e, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			s.handleFileEvent(e)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			core.LogError(err.Error())

		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		}
	}
}

// Handle the creation or modification of a file
func (s *ShaderStore) handleFileEvent(e fsnotify.Event) {
	if !e.Has(fsnotify.Create) && !e.Has(fsnotify.Write) && !e.Has(fsnotify.Rename) {
		return
	}
	name, ok := shaderName(e.Name)
	if !ok {
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	info, loaded := s.shaders[name]
	if !loaded || info.Dirty {
		return
	}
	info.Dirty = true
	s.shaders[name] = info
	core.LogWarn("shader '%s' changed on disk, restart the run to use it", name)
}

func shaderName(path string) (string, bool) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, SHADER_EXTENSION) {
		return "", false
	}
	return strings.TrimSuffix(base, SHADER_EXTENSION), true
}
