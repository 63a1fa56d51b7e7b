package client

import (
	"context"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/Ferlab-Ste-Justine/etcd-registry/keymodels"
)

func (cli *EtcdClient) putKeyWithRetries(key string, val string, retries uint64) (int64, error) {
	ctx, cancel := context.WithTimeout(cli.Context, cli.RequestTimeout)
	defer cancel()

	res, err := cli.Client.Put(ctx, key, val)
	if err != nil {
		if !shouldRetry(err, retries) {
			return -1, err
		}

		time.Sleep(cli.RetryInterval)
		return cli.putKeyWithRetries(key, val, retries-1)
	}

	return res.Header.Revision, nil
}

/*
Upsert the given value in the key.
Returns the store revision of the resulting mutation.
*/
func (cli *EtcdClient) PutKey(key string, val string) (int64, error) {
	return cli.putKeyWithRetries(key, val, cli.Retries)
}

func (cli *EtcdClient) getKeyWithRetries(key string, revision int64, retries uint64) (keymodels.KeyInfo, error) {
	ctx, cancel := context.WithTimeout(cli.Context, cli.RequestTimeout)
	defer cancel()

	var err error
	var getRes *clientv3.GetResponse

	if revision <= 0 {
		getRes, err = cli.Client.Get(ctx, key)
	} else {
		getRes, err = cli.Client.Get(ctx, key, clientv3.WithRev(revision))
	}

	if err != nil {
		if !shouldRetry(err, retries) {
			return keymodels.KeyInfo{}, err
		}

		time.Sleep(cli.RetryInterval)
		return cli.getKeyWithRetries(key, revision, retries-1)
	}

	if len(getRes.Kvs) == 0 {
		return keymodels.KeyInfo{}, nil
	}

	return keymodels.KeyInfo{
		Key:            key,
		Value:          string(getRes.Kvs[0].Value),
		Version:        getRes.Kvs[0].Version,
		CreateRevision: getRes.Kvs[0].CreateRevision,
		ModRevision:    getRes.Kvs[0].ModRevision,
		Lease:          getRes.Kvs[0].Lease,
	}, nil
}

/*
Get information on the given key including the value.
*/
func (cli *EtcdClient) GetKey(key string, opts keymodels.GetKeyOptions) (keymodels.KeyInfo, error) {
	return cli.getKeyWithRetries(key, opts.Revision, cli.Retries)
}

func (cli *EtcdClient) deleteKeyWithRetries(key string, retries uint64) (int64, error) {
	ctx, cancel := context.WithTimeout(cli.Context, cli.RequestTimeout)
	defer cancel()

	res, err := cli.Client.Delete(ctx, key)
	if err != nil {
		if !shouldRetry(err, retries) {
			return -1, err
		}

		time.Sleep(cli.RetryInterval)
		return cli.deleteKeyWithRetries(key, retries-1)
	}

	return res.Header.Revision, nil
}

/*
Delete a key.
Returns the store revision of the deleting mutation.
*/
func (cli *EtcdClient) DeleteKey(key string) (int64, error) {
	return cli.deleteKeyWithRetries(key, cli.Retries)
}
