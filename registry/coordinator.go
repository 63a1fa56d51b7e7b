package registry

import (
	"context"

	"github.com/Ferlab-Ste-Justine/etcd-registry/keymodels"
)

/*
Connection to the coordination service, as consumed by the registry.
Satisfied by *client.EtcdClient.
*/
type Coordinator interface {
	//Current revision of the store
	CurrentRevision() (int64, error)
	//Point read of a key. A KeyInfo with Found() == false signals an absent key.
	GetKey(key string, opts keymodels.GetKeyOptions) (keymodels.KeyInfo, error)
	//Upsert of a key, returning the revision of the mutation
	PutKey(key string, val string) (int64, error)
	//Deletion of a key, returning the revision of the mutation
	DeleteKey(key string) (int64, error)
	//Snapshot-consistent read of all keys under a prefix at the given revision (0 for the current state)
	GetPrefix(prefix string, revision int64) (keymodels.KeyInfoMap, int64, error)
	//Open-ended ordered change feed starting at the revision in the options
	Watch(wKey string, opts keymodels.WatchOptions) <-chan keymodels.WatchNotification
	Close()
}

/*
Pool of short-lived coordination service connections used by registry reads and writes.
*/
type ClientPool interface {
	//Checkout a connection. The returned function releases it and should be deferred.
	Checkout(ctx context.Context) (Coordinator, func(), error)
	Close() error
}

/*
Establishes the dedicated long-lived connection used by the watch loop.
It is dialed separately from the pool so that the loop's blocking read cannot starve other operations.
*/
type DialFunc func(ctx context.Context) (Coordinator, error)
