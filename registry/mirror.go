package registry

import "sync"

/*
Local in-memory replica of the registry's subtree, keyed by relative key.
Only the bootstrapper and the watch loop write to it.
*/
type mirror struct {
	mu      sync.RWMutex
	entries map[string]string
}

func newMirror() *mirror {
	return &mirror{
		entries: make(map[string]string),
	}
}

func (mir *mirror) get(key string) (string, bool) {
	mir.mu.RLock()
	defer mir.mu.RUnlock()

	val, ok := mir.entries[key]
	return val, ok
}

//Insert or replace, returning the prior value if there was one
func (mir *mirror) put(key string, val string) (string, bool) {
	mir.mu.Lock()
	defer mir.mu.Unlock()

	old, existed := mir.entries[key]
	mir.entries[key] = val
	return old, existed
}

//Remove, returning the prior value if there was one
func (mir *mirror) remove(key string) (string, bool) {
	mir.mu.Lock()
	defer mir.mu.Unlock()

	old, existed := mir.entries[key]
	delete(mir.entries, key)
	return old, existed
}

//Copy of the current state, safe to iterate while the watch loop keeps mutating
func (mir *mirror) snapshot() map[string]string {
	mir.mu.RLock()
	defer mir.mu.RUnlock()

	copied := make(map[string]string, len(mir.entries))
	for key, val := range mir.entries {
		copied[key] = val
	}

	return copied
}

func (mir *mirror) keys() []string {
	mir.mu.RLock()
	defer mir.mu.RUnlock()

	keys := make([]string, 0, len(mir.entries))
	for key := range mir.entries {
		keys = append(keys, key)
	}

	return keys
}
