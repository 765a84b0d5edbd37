package settings

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"
)

// Store owns the live settings and their backing file. Readers on any goroutine get copies;
// reloads from the watcher are staged and only become visible to the renderer through Poll.
type Store interface {
	// Path returns the backing file, or "" for an in-memory store.
	Path() string

	// Get returns a copy of the current settings.
	Get() Settings

	// Set replaces the current settings after normalizing them.
	Set(s Settings)

	// Update applies fn to a copy of the current settings and stores the normalized result.
	Update(fn func(*Settings))

	// Bool returns the boolean at a dotted key such as "ssao.state", or false.
	Bool(key string) bool

	// Float returns the number at a dotted key, or 0.
	Float(key string) float32

	// Int returns the integer at a dotted key, or 0.
	Int(key string) int

	// Floats returns the number list at a dotted key, or nil.
	Floats(key string) []float32

	// SetValue assigns one dotted key.
	//
	// Parameters:
	//   - key: a "section.name" key
	//   - value: a bool, number or number list
	//
	// Returns:
	//   - error: an error if the key is unknown or the value has the wrong type
	SetValue(key string, value any) error

	// Load replaces the current settings with the backing file. A missing file loads the defaults.
	//
	// Returns:
	//   - error: a read or decode error; the current settings are kept
	Load() error

	// Save writes the current settings to the backing file.
	//
	// Returns:
	//   - error: a write error, or an error for an in-memory store
	Save() error

	// Poll returns settings reloaded by Watch since the last call. The renderer calls it at frame start.
	//
	// Returns:
	//   - Settings: the reloaded settings
	//   - bool: true if a reload happened
	Poll() (Settings, bool)

	// Watch reloads the backing file whenever it changes until ctx is done. Each successful reload
	// becomes current, is staged for Poll and is passed to onChange when it is not nil.
	//
	// Parameters:
	//   - ctx: stops the watcher when done
	//   - onChange: an optional callback, invoked on the watcher goroutine
	//
	// Returns:
	//   - error: an error if the watcher could not be started
	Watch(ctx context.Context, onChange func(Settings)) error
}

type store struct {
	mu      sync.Mutex
	path    string
	current Settings
	pending *Settings
}

var _ Store = &store{}

// NewStore creates a store holding the defaults. Use WithPath and Load to back it with a file.
//
// Parameters:
//   - options: functional options
//
// Returns:
//   - Store: the store
func NewStore(options ...StoreBuilderOption) Store {
	s := &store{current: Defaults()}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *store) Path() string {
	return s.path
}

func (s *store) Get() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

func (s *store) Set(v Settings) {
	v = v.Normalized()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = v
}

func (s *store) Update(fn func(*Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.current.Clone()
	fn(&v)
	s.current = v.Normalized()
}

// tree renders the current settings as the generic TOML document so dotted keys can be addressed.
func (s *store) tree() map[string]any {
	data, err := Encode(s.Get())
	if err != nil {
		return nil
	}
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil
	}
	return doc
}

func lookup(doc map[string]any, key string) (any, bool) {
	section, name, ok := strings.Cut(key, ".")
	if !ok {
		return nil, false
	}
	table, ok := doc[section].(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := table[name]
	return v, ok
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func (s *store) Bool(key string) bool {
	v, _ := lookup(s.tree(), key)
	b, _ := v.(bool)
	return b
}

func (s *store) Float(key string) float32 {
	v, _ := lookup(s.tree(), key)
	n, _ := number(v)
	return float32(n)
}

func (s *store) Int(key string) int {
	v, _ := lookup(s.tree(), key)
	n, _ := number(v)
	return int(n)
}

func (s *store) Floats(key string) []float32 {
	v, _ := lookup(s.tree(), key)
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]float32, 0, len(list))
	for _, item := range list {
		n, ok := number(item)
		if !ok {
			return nil
		}
		out = append(out, float32(n))
	}
	return out
}

func (s *store) SetValue(key string, value any) error {
	doc := s.tree()
	old, ok := lookup(doc, key)
	if !ok {
		return fmt.Errorf("settings: unknown key %q", key)
	}
	section, name, _ := strings.Cut(key, ".")
	doc[section].(map[string]any)[name] = value

	data, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("settings: set %s: %w", key, err)
	}
	next := Defaults()
	decoder := toml.NewDecoder(strings.NewReader(string(data)))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&next); err != nil {
		return fmt.Errorf("settings: set %s from %v to %v: %w", key, old, value, err)
	}
	s.Set(next)
	return nil
}

func (s *store) Load() error {
	if s.path == "" {
		return nil
	}
	v, err := LoadFile(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = v
	return nil
}

func (s *store) Save() error {
	if s.path == "" {
		return fmt.Errorf("settings: store has no file")
	}
	return SaveFile(s.path, s.Get())
}

func (s *store) Poll() (Settings, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return Settings{}, false
	}
	v := *s.pending
	s.pending = nil
	return v, true
}

func (s *store) Watch(ctx context.Context, onChange func(Settings)) error {
	if s.path == "" {
		return fmt.Errorf("settings: store has no file to watch")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("settings: watch: %w", err)
	}
	// Editors replace files by rename, so the directory is watched rather than the file.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("settings: watch %s: %w", s.path, err)
	}

	target := filepath.Clean(s.path)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target || !event.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				v, err := LoadFile(s.path)
				if err != nil {
					common.Logger().Warn("settings: reload failed", "path", s.path, "err", err)
					continue
				}
				s.mu.Lock()
				s.current = v
				staged := v.Clone()
				s.pending = &staged
				s.mu.Unlock()
				common.Logger().Info("settings reloaded", "path", s.path)
				if onChange != nil {
					onChange(v.Clone())
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				common.Logger().Warn("settings: watcher error", "path", s.path, "err", err)
			}
		}
	}()
	return nil
}
