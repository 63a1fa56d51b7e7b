package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/Ferlab-Ste-Justine/etcd-registry/keymodels"
)

/*
Watch a key (or all the keys under a prefix) for changes and returns a channel that notifies of any changes.
Changes within a notification are ordered the way the store applied them, one KeyChange per mutation.
The channel closes after an error notification, when the client's context is done or when the client is closed.
*/
func (cli *EtcdClient) Watch(wKey string, opts keymodels.WatchOptions) <-chan keymodels.WatchNotification {
	outChan := make(chan keymodels.WatchNotification)

	go func() {
		ctx, cancel := context.WithCancel(cli.Context)
		defer cancel()
		defer close(outChan)

		watchOpts := []clientv3.OpOption{}
		if opts.IsPrefix {
			watchOpts = append(watchOpts, clientv3.WithPrefix())
		}

		if opts.Revision > 0 {
			watchOpts = append(watchOpts, clientv3.WithRev(opts.Revision))
		}

		wc := cli.Client.Watch(ctx, wKey, watchOpts...)
		if wc == nil {
			outChan <- keymodels.WatchNotification{Error: errors.New("Failed to watch changes: Watcher could not be established")}
			return
		}

		for res := range wc {
			err := res.Err()
			if err != nil {
				outChan <- keymodels.WatchNotification{Error: errors.New(fmt.Sprintf("Failed to watch changes: %s", err.Error()))}
				return
			}

			output := keymodels.WatchNotification{
				Changes: []keymodels.KeyChange{},
			}

			for _, ev := range res.Events {
				key := string(ev.Kv.Key)
				if opts.TrimPrefix {
					key = strings.TrimPrefix(key, wKey)
				}

				change := keymodels.KeyChange{
					Key:      key,
					Revision: ev.Kv.ModRevision,
				}
				if ev.Type == mvccpb.DELETE {
					change.Type = keymodels.ChangeDelete
				} else if ev.Type == mvccpb.PUT {
					change.Type = keymodels.ChangePut
					change.Value = string(ev.Kv.Value)
				} else {
					change.Type = keymodels.ChangeUnknown
				}

				output.Changes = append(output.Changes, change)
			}

			outChan <- output
		}
	}()

	return outChan
}
