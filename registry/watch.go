package registry

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/Ferlab-Ste-Justine/etcd-registry/keymodels"
)

type WatchState int64

const (
	//The loop has not opened its change feed yet
	WatchStarting WatchState = iota
	//The loop is consuming the change feed
	WatchRunning
	//The loop was stopped by Close
	WatchStoppedNormal
	//The loop was terminated by a fault on the change feed. The registry no longer receives updates.
	WatchStoppedFaulted
)

func (state WatchState) String() string {
	switch state {
	case WatchStarting:
		return "starting"
	case WatchRunning:
		return "running"
	case WatchStoppedNormal:
		return "stopped"
	case WatchStoppedFaulted:
		return "faulted"
	}
	return "unknown"
}

/*
The watch loop tails the change feed for the registry's subtree on a dedicated connection,
applies each event to the mirror and drives listener dispatch.
It owns its connection exclusively and closes it on exit.
*/
type watchLoop struct {
	conn         Coordinator
	fromRevision int64
	//Revision of the last applied event. Touched only by the loop's goroutine after construction.
	currentRevision int64
	done            chan struct{}
	mu              sync.Mutex
	state           WatchState
	fault           error
	stopping        bool
}

func newWatchLoop(conn Coordinator, bootstrapRevision int64) *watchLoop {
	return &watchLoop{
		conn:            conn,
		fromRevision:    bootstrapRevision + 1,
		currentRevision: bootstrapRevision,
		done:            make(chan struct{}),
		state:           WatchStarting,
	}
}

func (loop *watchLoop) setState(state WatchState, fault error) {
	loop.mu.Lock()
	defer loop.mu.Unlock()
	loop.state = state
	loop.fault = fault
}

func (loop *watchLoop) getState() (WatchState, error) {
	loop.mu.Lock()
	defer loop.mu.Unlock()
	return loop.state, loop.fault
}

/*
Signal the loop to stop. Closing the dedicated connection unblocks its pending read.
*/
func (loop *watchLoop) stop() {
	loop.mu.Lock()
	alreadyStopping := loop.stopping
	loop.stopping = true
	loop.mu.Unlock()

	if !alreadyStopping {
		loop.conn.Close()
	}

	<-loop.done
}

func (loop *watchLoop) isStopping() bool {
	loop.mu.Lock()
	defer loop.mu.Unlock()
	return loop.stopping
}

func (loop *watchLoop) run(reg *Registry) {
	defer close(loop.done)
	defer loop.conn.Close()

	feed := loop.conn.Watch(reg.ns.prefix(), keymodels.WatchOptions{
		Revision:   loop.fromRevision,
		IsPrefix:   true,
		TrimPrefix: true,
	})

	loop.setState(WatchRunning, nil)

	for notification := range feed {
		if notification.Error != nil {
			if loop.isStopping() {
				loop.setState(WatchStoppedNormal, nil)
				return
			}

			reg.metrics.incWatchFaults()
			reg.logger.Error(
				"Watch loop terminated by a fault on the change feed",
				zap.String("rootPath", reg.ns.rootPath),
				zap.Error(notification.Error),
			)
			loop.setState(WatchStoppedFaulted, notification.Error)
			return
		}

		for _, change := range notification.Changes {
			loop.apply(reg, change)
		}
	}

	if loop.isStopping() {
		loop.setState(WatchStoppedNormal, nil)
		return
	}

	fault := errors.New("Watch loop terminated: change feed closed unexpectedly")
	reg.metrics.incWatchFaults()
	reg.logger.Error(
		"Watch loop terminated: change feed closed unexpectedly",
		zap.String("rootPath", reg.ns.rootPath),
	)
	loop.setState(WatchStoppedFaulted, fault)
}

func (loop *watchLoop) apply(reg *Registry, change keymodels.KeyChange) {
	if change.Revision <= loop.currentRevision {
		reg.metrics.incDropped()
		reg.logger.Error(
			"Dropped out of order change event",
			zap.String("key", change.Key),
			zap.Int64("revision", change.Revision),
			zap.Int64("currentRevision", loop.currentRevision),
		)
		return
	}

	switch change.Type {
	case keymodels.ChangePut:
		loop.currentRevision = change.Revision
		if reg.mirror == nil {
			//Without a mirror, creations cannot be told apart from updates
			reg.metrics.incApplied("update")
			reg.subs.dispatchUpdate(change.Key, change.Value, "", change.Revision)
			return
		}

		old, existed := reg.mirror.put(change.Key, change.Value)
		if existed {
			reg.metrics.incApplied("update")
			reg.subs.dispatchUpdate(change.Key, change.Value, old, change.Revision)
		} else {
			reg.metrics.incApplied("create")
			reg.subs.dispatchCreate(change.Key, change.Value, change.Revision)
		}
	case keymodels.ChangeDelete:
		loop.currentRevision = change.Revision
		old := ""
		if reg.mirror != nil {
			old, _ = reg.mirror.remove(change.Key)
		}
		reg.metrics.incApplied("delete")
		reg.subs.dispatchDelete(change.Key, old, change.Revision)
	default:
		reg.metrics.incDropped()
		reg.logger.Error(
			"Dropped change event of unknown type",
			zap.String("key", change.Key),
			zap.Int64("revision", change.Revision),
		)
	}
}
