package registry

import (
	"sync"

	"go.uber.org/zap"
)

//Invoked when a key appears under the registry's root path
type CreateFunc func(key string, value string, revision int64)

//Invoked when an existing key is overwritten. With caching disabled, oldValue is always empty.
type UpdateFunc func(key string, newValue string, oldValue string, revision int64)

//Invoked when a key is removed. oldValue is empty if caching is disabled or the key was unknown.
type DeleteFunc func(key string, oldValue string, revision int64)

/*
Pattern selects which keys a listener is notified about: a single relative key or all of them.
*/
type Pattern struct {
	key      string
	wildcard bool
}

//Pattern matching a single relative key
func ForKey(key string) Pattern {
	return Pattern{key: key}
}

//Pattern matching every relative key
func AllKeys() Pattern {
	return Pattern{wildcard: true}
}

/*
Listener registrations, by event kind and pattern.
Registration is safe at any time, including while a dispatch is in flight:
dispatch copies the listener list before invoking anything.
*/
type subscriptions struct {
	mu        sync.RWMutex
	logger    *zap.Logger
	metrics   *Metrics
	createKey map[string][]CreateFunc
	createAll []CreateFunc
	updateKey map[string][]UpdateFunc
	updateAll []UpdateFunc
	deleteKey map[string][]DeleteFunc
	deleteAll []DeleteFunc
}

func newSubscriptions(logger *zap.Logger, metrics *Metrics) *subscriptions {
	return &subscriptions{
		logger:    logger,
		metrics:   metrics,
		createKey: make(map[string][]CreateFunc),
		updateKey: make(map[string][]UpdateFunc),
		deleteKey: make(map[string][]DeleteFunc),
	}
}

func (subs *subscriptions) addCreate(pattern Pattern, listener CreateFunc) {
	subs.mu.Lock()
	defer subs.mu.Unlock()

	if pattern.wildcard {
		subs.createAll = append(subs.createAll, listener)
		return
	}
	subs.createKey[pattern.key] = append(subs.createKey[pattern.key], listener)
}

func (subs *subscriptions) addUpdate(pattern Pattern, listener UpdateFunc) {
	subs.mu.Lock()
	defer subs.mu.Unlock()

	if pattern.wildcard {
		subs.updateAll = append(subs.updateAll, listener)
		return
	}
	subs.updateKey[pattern.key] = append(subs.updateKey[pattern.key], listener)
}

func (subs *subscriptions) addDelete(pattern Pattern, listener DeleteFunc) {
	subs.mu.Lock()
	defer subs.mu.Unlock()

	if pattern.wildcard {
		subs.deleteAll = append(subs.deleteAll, listener)
		return
	}
	subs.deleteKey[pattern.key] = append(subs.deleteKey[pattern.key], listener)
}

//Invoke a single listener, containing any panic so that sibling listeners and the watch loop keep going
func (subs *subscriptions) invoke(kind string, key string, listener func()) {
	defer func() {
		if rec := recover(); rec != nil {
			subs.metrics.incListenerPanics()
			subs.logger.Error(
				"Listener panicked during dispatch",
				zap.String("kind", kind),
				zap.String("key", key),
				zap.Any("panic", rec),
			)
		}
	}()

	listener()
}

func (subs *subscriptions) dispatchCreate(key string, value string, revision int64) {
	subs.mu.RLock()
	listeners := make([]CreateFunc, 0, len(subs.createKey[key])+len(subs.createAll))
	listeners = append(listeners, subs.createKey[key]...)
	listeners = append(listeners, subs.createAll...)
	subs.mu.RUnlock()

	for _, listener := range listeners {
		listener := listener
		subs.invoke("create", key, func() {
			listener(key, value, revision)
		})
	}
}

func (subs *subscriptions) dispatchUpdate(key string, newValue string, oldValue string, revision int64) {
	subs.mu.RLock()
	listeners := make([]UpdateFunc, 0, len(subs.updateKey[key])+len(subs.updateAll))
	listeners = append(listeners, subs.updateKey[key]...)
	listeners = append(listeners, subs.updateAll...)
	subs.mu.RUnlock()

	for _, listener := range listeners {
		listener := listener
		subs.invoke("update", key, func() {
			listener(key, newValue, oldValue, revision)
		})
	}
}

func (subs *subscriptions) dispatchDelete(key string, oldValue string, revision int64) {
	subs.mu.RLock()
	listeners := make([]DeleteFunc, 0, len(subs.deleteKey[key])+len(subs.deleteAll))
	listeners = append(listeners, subs.deleteKey[key]...)
	listeners = append(listeners, subs.deleteAll...)
	subs.mu.RUnlock()

	for _, listener := range listeners {
		listener := listener
		subs.invoke("delete", key, func() {
			listener(key, oldValue, revision)
		})
	}
}
