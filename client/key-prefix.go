package client

import (
	"context"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/Ferlab-Ste-Justine/etcd-registry/keymodels"
)

func (cli *EtcdClient) getPrefixWithRetries(prefix string, revision int64, retries uint64) (keymodels.KeyInfoMap, int64, error) {
	ctx, cancel := context.WithTimeout(cli.Context, cli.RequestTimeout)
	defer cancel()

	keys := keymodels.KeyInfoMap(make(map[string]keymodels.KeyInfo))

	getOpts := []clientv3.OpOption{clientv3.WithRange(clientv3.GetPrefixRangeEnd(prefix))}
	if revision > 0 {
		getOpts = append(getOpts, clientv3.WithRev(revision))
	}

	res, err := cli.Client.Get(ctx, prefix, getOpts...)
	if err != nil {
		if !shouldRetry(err, retries) {
			return keys, -1, err
		}

		time.Sleep(cli.RetryInterval)
		return cli.getPrefixWithRetries(prefix, revision, retries-1)
	}

	for _, kv := range res.Kvs {
		key := string(kv.Key)
		keys[key] = keymodels.KeyInfo{
			Key:            key,
			Value:          string(kv.Value),
			Version:        kv.Version,
			CreateRevision: kv.CreateRevision,
			ModRevision:    kv.ModRevision,
			Lease:          kv.Lease,
		}
	}

	return keys, res.Header.Revision, nil
}

/*
Get all the keys under a given prefix as observed at the given store revision.
A revision of 0 fetches the current state of the prefix.
The second return value is the store revision the result was served at.
*/
func (cli *EtcdClient) GetPrefix(prefix string, revision int64) (keymodels.KeyInfoMap, int64, error) {
	return cli.getPrefixWithRetries(prefix, revision, cli.Retries)
}
