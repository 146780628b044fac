package localstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const (
	storeDirName  = "vayu"
	storeFileName = "session.json"
)

// DefaultStorePath returns the path of the shared session file under the
// user's config directory.
func DefaultStorePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", storeDirName, storeFileName), nil
}

// FileStore persists keys in a JSON file shared by every process of the
// application on this machine. External writes are observed through an
// fsnotify watch on the containing directory; the store's own writes are
// suppressed by comparing the file content against the last serialized state.
type FileStore struct {
	path    string
	logger  zerolog.Logger
	watcher *fsnotify.Watcher

	mu        sync.Mutex
	lastState map[string]string
	subs      map[*fileSub]struct{}
	closed    bool
}

type fileSub struct {
	store *FileStore
	key   string
	fn    func(value string)
}

func (s *fileSub) Unsubscribe() {
	s.store.mu.Lock()
	delete(s.store.subs, s)
	s.store.mu.Unlock()
}

// NewFileStore opens (or creates) the session file at path and starts watching
// it for external changes.
func NewFileStore(path string, logger zerolog.Logger) (*FileStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch store directory: %w", err)
	}

	fs := &FileStore{
		path:    path,
		logger:  logger,
		watcher: watcher,
		subs:    make(map[*fileSub]struct{}),
	}
	fs.lastState, _ = fs.readFile()

	go fs.watchLoop()

	return fs, nil
}

// Close stops the external-change watcher. Safe to call more than once.
func (f *FileStore) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.mu.Unlock()
	return f.watcher.Close()
}

func (f *FileStore) Get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.lastState[key]
	return v, ok
}

func (f *FileStore) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	state := f.copyState()
	state[key] = value
	return f.writeState(state)
}

func (f *FileStore) Remove(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	state := f.copyState()
	delete(state, key)
	return f.writeState(state)
}

func (f *FileStore) RemoveAll() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writeState(map[string]string{})
}

func (f *FileStore) OnExternalChange(key string, fn func(value string)) Subscription {
	sub := &fileSub{store: f, key: key, fn: fn}
	f.mu.Lock()
	f.subs[sub] = struct{}{}
	f.mu.Unlock()
	return sub
}

func (f *FileStore) copyState() map[string]string {
	state := make(map[string]string, len(f.lastState))
	for k, v := range f.lastState {
		state[k] = v
	}
	return state
}

// writeState persists state and records it as our own write so the watcher
// does not report it back. Caller holds the mutex.
func (f *FileStore) writeState(state map[string]string) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store state: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	f.lastState = state
	return nil
}

func (f *FileStore) readFile() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}

	state := map[string]string{}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse store file: %w", err)
	}
	return state, nil
}

func (f *FileStore) watchLoop() {
	for {
		select {
		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(f.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) {
				continue
			}
			f.handleExternalEvent()
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.logger.Warn().Err(err).Msg("Session store watcher error")
		}
	}
}

func (f *FileStore) handleExternalEvent() {
	state, err := f.readFile()
	if err != nil {
		f.logger.Warn().Err(err).Msg("Failed to re-read session store after change")
		return
	}

	f.mu.Lock()
	type notification struct {
		fn    func(string)
		value string
	}
	var notify []notification
	for sub := range f.subs {
		oldVal, hadOld := f.lastState[sub.key]
		newVal, hasNew := state[sub.key]
		if oldVal != newVal || hadOld != hasNew {
			notify = append(notify, notification{fn: sub.fn, value: newVal})
		}
	}
	f.lastState = state
	f.mu.Unlock()

	for _, n := range notify {
		n.fn(n.value)
	}
}
