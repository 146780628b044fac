package localstore

import "sync"

// MemBackend is an in-process shared backing for MemStore tabs. Every tab
// opened from the same backend sees the same keys, mirroring browser local
// storage shared across tabs of one origin.
type MemBackend struct {
	mu   sync.Mutex
	data map[string]string
	subs map[*memSub]struct{}
}

// NewMemBackend creates an empty shared backing.
func NewMemBackend() *MemBackend {
	return &MemBackend{
		data: make(map[string]string),
		subs: make(map[*memSub]struct{}),
	}
}

// OpenTab returns a Store bound to a new execution context. Writes through the
// returned store notify subscribers of every other tab, never its own.
func (b *MemBackend) OpenTab() *MemStore {
	return &MemStore{backend: b}
}

// MemStore is one tab's view of a MemBackend.
type MemStore struct {
	backend *MemBackend
}

type memSub struct {
	backend *MemBackend
	owner   *MemStore
	key     string
	fn      func(value string)
}

func (s *memSub) Unsubscribe() {
	s.backend.mu.Lock()
	delete(s.backend.subs, s)
	s.backend.mu.Unlock()
}

func (m *MemStore) Get(key string) (string, bool) {
	m.backend.mu.Lock()
	defer m.backend.mu.Unlock()
	v, ok := m.backend.data[key]
	return v, ok
}

func (m *MemStore) Set(key, value string) error {
	m.backend.mu.Lock()
	m.backend.data[key] = value
	notify := m.backend.collectSubs(m, key)
	m.backend.mu.Unlock()

	for _, fn := range notify {
		fn(value)
	}
	return nil
}

func (m *MemStore) Remove(key string) error {
	m.backend.mu.Lock()
	_, existed := m.backend.data[key]
	delete(m.backend.data, key)
	var notify []func(string)
	if existed {
		notify = m.backend.collectSubs(m, key)
	}
	m.backend.mu.Unlock()

	for _, fn := range notify {
		fn("")
	}
	return nil
}

func (m *MemStore) RemoveAll() error {
	m.backend.mu.Lock()
	var notify []func(string)
	for key := range m.backend.data {
		notify = append(notify, m.backend.collectSubs(m, key)...)
	}
	m.backend.data = make(map[string]string)
	m.backend.mu.Unlock()

	for _, fn := range notify {
		fn("")
	}
	return nil
}

func (m *MemStore) OnExternalChange(key string, fn func(value string)) Subscription {
	sub := &memSub{backend: m.backend, owner: m, key: key, fn: fn}
	m.backend.mu.Lock()
	m.backend.subs[sub] = struct{}{}
	m.backend.mu.Unlock()
	return sub
}

// collectSubs gathers callbacks of subscriptions on key owned by tabs other
// than writer. Caller holds the mutex; callbacks are invoked after release.
func (b *MemBackend) collectSubs(writer *MemStore, key string) []func(string) {
	var out []func(string)
	for sub := range b.subs {
		if sub.owner != writer && sub.key == key {
			out = append(out, sub.fn)
		}
	}
	return out
}
