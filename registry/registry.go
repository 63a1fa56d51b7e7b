package registry

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Ferlab-Ste-Justine/etcd-registry/keymodels"
)

type Options struct {
	//Path under which all the registry's keys live. Mandatory.
	RootPath string
	//Whether to maintain a local mirror of the subtree. Enables create/update distinction and networkless reads.
	Cache bool
	//Logger used by the watch loop and dispatch. Defaults to a noop logger.
	Logger *zap.Logger
	//Codec used by GetAs/PutAs. Defaults to JSON.
	Codec Codec
	//Optional counters. Nil disables counting.
	Metrics *Metrics
	//Pool serving the registry's reads and writes
	Pool ClientPool
	//Dials the watch loop's dedicated connection
	Dial DialFunc
}

/*
Registry maintains a view of the subtree under a root path in the coordination service.

Construction takes a snapshot of the subtree at a single revision, then a background
watch loop tails the change feed from one past that revision, keeping the mirror in
sync and notifying listeners of every create, update and deletion in revision order.

Writes go straight to the store and are reflected in the mirror only once the watch
loop observes them on the feed, so a writer reads its own write only after the feed
round-trips it.
*/
type Registry struct {
	ns        namespace
	cache     bool
	logger    *zap.Logger
	codec     Codec
	metrics   *Metrics
	pool      ClientPool
	mirror    *mirror
	subs      *subscriptions
	loop      *watchLoop
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

/*
Create a registry. The snapshot of the subtree is taken synchronously, so once New
returns, reads are served from a fully populated mirror. The watch loop is started
before returning, anchored one revision past the snapshot.
*/
func New(opts Options) (*Registry, error) {
	ns, nsErr := newNamespace(opts.RootPath)
	if nsErr != nil {
		return nil, nsErr
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	codec := opts.Codec
	if codec == nil {
		codec = JSONCodec{}
	}

	reg := &Registry{
		ns:      ns,
		cache:   opts.Cache,
		logger:  logger,
		codec:   codec,
		metrics: opts.Metrics,
		pool:    opts.Pool,
		subs:    newSubscriptions(logger, opts.Metrics),
	}

	bootstrapRevision, bootErr := reg.bootstrap()
	if bootErr != nil {
		return nil, bootErr
	}

	watchConn, dialErr := opts.Dial(context.Background())
	if dialErr != nil {
		return nil, dialErr
	}

	reg.loop = newWatchLoop(watchConn, bootstrapRevision)
	go reg.loop.run(reg)

	return reg, nil
}

/*
Populate the mirror with the state of the subtree at a single store revision
and return that revision as the watch loop's anchor. Without caching, only
the current store revision is fetched.
*/
func (reg *Registry) bootstrap() (int64, error) {
	conn, release, err := reg.pool.Checkout(context.Background())
	if err != nil {
		return -1, err
	}
	defer release()

	if !reg.cache {
		return conn.CurrentRevision()
	}

	reg.mirror = newMirror()

	keys, revision, prefixErr := conn.GetPrefix(reg.ns.prefix(), 0)
	if prefixErr != nil {
		return -1, prefixErr
	}

	for key, info := range keys {
		reg.mirror.put(reg.ns.relativeKey(key), info.Value)
	}

	return revision, nil
}

/*
Get the value of a key. With caching enabled, the read is served from the mirror
without any network call. The second return value tells whether the key exists.
*/
func (reg *Registry) Get(key string) (string, bool, error) {
	if reg.closed.Load() {
		return "", false, ErrClosed
	}

	if reg.cache {
		val, ok := reg.mirror.get(key)
		return val, ok, nil
	}

	conn, release, err := reg.pool.Checkout(context.Background())
	if err != nil {
		return "", false, err
	}
	defer release()

	info, getErr := conn.GetKey(reg.ns.absoluteKey(key), keymodels.GetKeyOptions{})
	if getErr != nil {
		return "", false, getErr
	}

	if !info.Found() {
		return "", false, nil
	}

	return info.Value, true, nil
}

/*
Get the value of a key and decode it into v with the configured codec.
The first return value tells whether the key exists; v is untouched when it doesn't.
*/
func (reg *Registry) GetAs(key string, v interface{}) (bool, error) {
	val, ok, err := reg.Get(key)
	if err != nil || !ok {
		return ok, err
	}

	return true, reg.codec.Unmarshal([]byte(val), v)
}

/*
Upsert the value of a key.
The mirror is deliberately not touched: it reflects the write only once the watch
loop observes it on the change feed, so the mirror never holds a state the feed
has not confirmed.
*/
func (reg *Registry) Put(key string, value string) error {
	if reg.closed.Load() {
		return ErrClosed
	}

	conn, release, err := reg.pool.Checkout(context.Background())
	if err != nil {
		return err
	}
	defer release()

	_, putErr := conn.PutKey(reg.ns.absoluteKey(key), value)
	return putErr
}

/*
Encode v with the configured codec and upsert it as the value of a key.
*/
func (reg *Registry) PutAs(key string, v interface{}) error {
	data, err := reg.codec.Marshal(v)
	if err != nil {
		return err
	}

	return reg.Put(key, string(data))
}

/*
Delete a key. The returned value is the cached value the key had before the
deletion, as a best effort convenience: it may be stale, and is empty when
caching is disabled or the key was unknown.
*/
func (reg *Registry) Delete(key string) (string, error) {
	if reg.closed.Load() {
		return "", ErrClosed
	}

	old := ""
	if reg.cache {
		old, _ = reg.mirror.get(key)
	}

	conn, release, err := reg.pool.Checkout(context.Background())
	if err != nil {
		return "", err
	}
	defer release()

	_, delErr := conn.DeleteKey(reg.ns.absoluteKey(key))
	return old, delErr
}

/*
Snapshot of the registry's current state as a relative key to value map.
Served from a copy of the mirror when caching is enabled, from the store otherwise.
*/
func (reg *Registry) Snapshot() (map[string]string, error) {
	if reg.closed.Load() {
		return nil, ErrClosed
	}

	if reg.cache {
		return reg.mirror.snapshot(), nil
	}

	conn, release, err := reg.pool.Checkout(context.Background())
	if err != nil {
		return nil, err
	}
	defer release()

	keys, _, prefixErr := conn.GetPrefix(reg.ns.prefix(), 0)
	if prefixErr != nil {
		return nil, prefixErr
	}

	return keys.ToValueMap(reg.ns.prefix()), nil
}

/*
Visit every entry of the registry. Iteration happens over a snapshot, so the
watch loop can keep applying changes while it runs.
*/
func (reg *Registry) Each(visit func(key string, value string)) error {
	snapshot, err := reg.Snapshot()
	if err != nil {
		return err
	}

	for key, val := range snapshot {
		visit(key, val)
	}

	return nil
}

/*
Relative keys currently present in the registry.
*/
func (reg *Registry) Keys() ([]string, error) {
	if reg.closed.Load() {
		return nil, ErrClosed
	}

	if reg.cache {
		return reg.mirror.keys(), nil
	}

	snapshot, err := reg.Snapshot()
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(snapshot))
	for key := range snapshot {
		keys = append(keys, key)
	}

	return keys, nil
}

/*
Register a listener for keys appearing under the root path.
With caching disabled the registry cannot tell creations apart from updates and
create listeners never fire; register an update listener instead.
Listeners are never unregistered and are invoked on the watch loop's goroutine,
key-specific listeners before wildcard ones, in registration order.
*/
func (reg *Registry) OnCreate(pattern Pattern, listener CreateFunc) {
	reg.subs.addCreate(pattern, listener)
}

/*
Register a listener for keys being overwritten.
With caching disabled, every put lands here and the old value is empty.
*/
func (reg *Registry) OnUpdate(pattern Pattern, listener UpdateFunc) {
	reg.subs.addUpdate(pattern, listener)
}

/*
Register a listener for keys being removed.
*/
func (reg *Registry) OnDelete(pattern Pattern, listener DeleteFunc) {
	reg.subs.addDelete(pattern, listener)
}

/*
State of the watch loop. The error is non-nil only in the faulted state.
A faulted loop is not restarted: the registry silently stops receiving updates,
which callers supervising the registry can detect here.
*/
func (reg *Registry) WatchState() (WatchState, error) {
	return reg.loop.getState()
}

/*
Stop the watch loop, wait for it to exit and close the connection pool.
Idempotent. Registry operations after Close fail with ErrClosed.
*/
func (reg *Registry) Close() error {
	reg.closeOnce.Do(func() {
		reg.closed.Store(true)
		reg.loop.stop()
		reg.closeErr = reg.pool.Close()
	})

	return reg.closeErr
}
