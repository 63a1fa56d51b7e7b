package keymodels

type ChangeType int64

const (
	//The key was inserted or overwritten
	ChangePut ChangeType = iota
	//The key was removed
	ChangeDelete
	//The event type reported by the store was not recognized
	ChangeUnknown
)

/*
A single modification observed on the change feed.
Changes are emitted one at a time, in the order the store applied them.
*/
type KeyChange struct {
	//Key that changed
	Key      string
	//New value for put changes, empty for deletions
	Value    string
	//Revision of the store at which the change was applied
	Revision int64
	//Whether the change was a put or a deletion
	Type     ChangeType
}

/*
Options that get passed to the Watch method
*/
type WatchOptions struct {
	//Store revision to start watching from. Should usually be set to one past the revision of a prior read.
	Revision   int64
	//Whether the watched key should be treated as a prefix to watch
	IsPrefix   bool
	//Whether the watched key should be trimmed from the keys of reported changes
	TrimPrefix bool
}

/*
Batch of changes reported by the watch channel.
Either Changes is populated or Error is set, never both.
*/
type WatchNotification struct {
	Changes []KeyChange
	Error   error
}
