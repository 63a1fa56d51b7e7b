package registry

import (
	"context"
	"strings"
	"sync"

	"github.com/Ferlab-Ste-Justine/etcd-registry/keymodels"
)

/*
In-memory stand-in for the coordination service: revisioned key space,
prefix reads and ordered change feeds with history replay from a revision.
*/
type fakeStore struct {
	mu          sync.Mutex
	revision    int64
	entries     map[string]string
	created     map[string]int64
	versions    map[string]int64
	history     []keymodels.KeyChange
	watchers    []*fakeWatcher
	getCalls    int
	prefixCalls int
}

type fakeWatcher struct {
	prefix string
	trim   bool
	ch     chan keymodels.WatchNotification
	closed bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		entries:  make(map[string]string),
		created:  make(map[string]int64),
		versions: make(map[string]int64),
	}
}

func (store *fakeStore) put(key string, val string) int64 {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.revision++
	store.entries[key] = val
	if _, ok := store.created[key]; !ok {
		store.created[key] = store.revision
	}
	store.versions[key]++

	change := keymodels.KeyChange{Key: key, Value: val, Revision: store.revision, Type: keymodels.ChangePut}
	store.history = append(store.history, change)
	store.broadcast(change)

	return store.revision
}

func (store *fakeStore) del(key string) int64 {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.revision++
	delete(store.entries, key)
	delete(store.created, key)
	delete(store.versions, key)

	change := keymodels.KeyChange{Key: key, Revision: store.revision, Type: keymodels.ChangeDelete}
	store.history = append(store.history, change)
	store.broadcast(change)

	return store.revision
}

//Push an arbitrary change to the watchers without touching the key space
func (store *fakeStore) emit(change keymodels.KeyChange) {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.broadcast(change)
}

//Fail every watcher the way a broken stream would
func (store *fakeStore) failWatchers(err error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, watcher := range store.watchers {
		if watcher.closed {
			continue
		}
		watcher.ch <- keymodels.WatchNotification{Error: err}
		close(watcher.ch)
		watcher.closed = true
	}
}

//Close every watcher channel without an error notification
func (store *fakeStore) closeWatchers() {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, watcher := range store.watchers {
		if watcher.closed {
			continue
		}
		close(watcher.ch)
		watcher.closed = true
	}
}

//Callers must hold store.mu
func (store *fakeStore) broadcast(change keymodels.KeyChange) {
	for _, watcher := range store.watchers {
		watcher.deliver(change)
	}
}

func (watcher *fakeWatcher) deliver(change keymodels.KeyChange) {
	if watcher.closed || !strings.HasPrefix(change.Key, watcher.prefix) {
		return
	}

	delivered := change
	if watcher.trim {
		delivered.Key = strings.TrimPrefix(delivered.Key, watcher.prefix)
	}
	watcher.ch <- keymodels.WatchNotification{Changes: []keymodels.KeyChange{delivered}}
}

/*
Coordinator over the fake store. Close shuts down the watchers the
connection opened, mirroring the behavior of a closed client connection.
*/
type fakeConn struct {
	store    *fakeStore
	mu       sync.Mutex
	watchers []*fakeWatcher
	closed   bool
}

func (store *fakeStore) connect() *fakeConn {
	return &fakeConn{store: store}
}

func (conn *fakeConn) CurrentRevision() (int64, error) {
	conn.store.mu.Lock()
	defer conn.store.mu.Unlock()

	return conn.store.revision, nil
}

func (conn *fakeConn) GetKey(key string, opts keymodels.GetKeyOptions) (keymodels.KeyInfo, error) {
	conn.store.mu.Lock()
	defer conn.store.mu.Unlock()

	conn.store.getCalls++

	val, ok := conn.store.entries[key]
	if !ok {
		return keymodels.KeyInfo{}, nil
	}

	return keymodels.KeyInfo{
		Key:            key,
		Value:          val,
		Version:        conn.store.versions[key],
		CreateRevision: conn.store.created[key],
		ModRevision:    conn.store.revision,
	}, nil
}

func (conn *fakeConn) PutKey(key string, val string) (int64, error) {
	return conn.store.put(key, val), nil
}

func (conn *fakeConn) DeleteKey(key string) (int64, error) {
	return conn.store.del(key), nil
}

func (conn *fakeConn) GetPrefix(prefix string, revision int64) (keymodels.KeyInfoMap, int64, error) {
	conn.store.mu.Lock()
	defer conn.store.mu.Unlock()

	conn.store.prefixCalls++

	keys := keymodels.KeyInfoMap(make(map[string]keymodels.KeyInfo))
	for key, val := range conn.store.entries {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		keys[key] = keymodels.KeyInfo{
			Key:            key,
			Value:          val,
			Version:        conn.store.versions[key],
			CreateRevision: conn.store.created[key],
			ModRevision:    conn.store.revision,
		}
	}

	return keys, conn.store.revision, nil
}

func (conn *fakeConn) Watch(wKey string, opts keymodels.WatchOptions) <-chan keymodels.WatchNotification {
	conn.mu.Lock()
	defer conn.mu.Unlock()

	if conn.closed {
		closed := make(chan keymodels.WatchNotification)
		close(closed)
		return closed
	}

	conn.store.mu.Lock()
	defer conn.store.mu.Unlock()

	watcher := &fakeWatcher{
		prefix: wKey,
		trim:   opts.TrimPrefix,
		ch:     make(chan keymodels.WatchNotification, 256),
	}

	//Replay of the feed from the requested revision, then live events
	for _, change := range conn.store.history {
		if change.Revision >= opts.Revision {
			watcher.deliver(change)
		}
	}

	conn.store.watchers = append(conn.store.watchers, watcher)
	conn.watchers = append(conn.watchers, watcher)

	return watcher.ch
}

func (conn *fakeConn) Close() {
	conn.mu.Lock()
	if conn.closed {
		conn.mu.Unlock()
		return
	}
	conn.closed = true
	watchers := conn.watchers
	conn.mu.Unlock()

	conn.store.mu.Lock()
	defer conn.store.mu.Unlock()
	for _, watcher := range watchers {
		if !watcher.closed {
			close(watcher.ch)
			watcher.closed = true
		}
	}
}

type fakePool struct {
	store     *fakeStore
	mu        sync.Mutex
	checkouts int
	closings  int
}

func (p *fakePool) Checkout(ctx context.Context) (Coordinator, func(), error) {
	p.mu.Lock()
	p.checkouts++
	p.mu.Unlock()

	return p.store.connect(), func() {}, nil
}

func (p *fakePool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closings++
	return nil
}
