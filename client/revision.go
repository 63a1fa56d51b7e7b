package client

import (
	"context"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

func (cli *EtcdClient) currentRevisionWithRetries(retries uint64) (int64, error) {
	ctx, cancel := context.WithTimeout(cli.Context, cli.RequestTimeout)
	defer cancel()

	//Count-only get on an arbitrary key: the response header carries the store revision
	res, err := cli.Client.Get(ctx, "\x00", clientv3.WithCountOnly())
	if err != nil {
		if !shouldRetry(err, retries) {
			return -1, err
		}

		time.Sleep(cli.RetryInterval)
		return cli.currentRevisionWithRetries(retries - 1)
	}

	return res.Header.Revision, nil
}

/*
Get the current revision of the store.
*/
func (cli *EtcdClient) CurrentRevision() (int64, error) {
	return cli.currentRevisionWithRetries(cli.Retries)
}
