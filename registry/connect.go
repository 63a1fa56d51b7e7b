package registry

import (
	"context"

	"go.uber.org/zap"

	"github.com/Ferlab-Ste-Justine/etcd-registry/client"
	"github.com/Ferlab-Ste-Justine/etcd-registry/pool"
)

//Adapts the connection pool to the Coordinator handles the registry consumes
type etcdPool struct {
	pool *pool.Pool
}

func (p *etcdPool) Checkout(ctx context.Context) (Coordinator, func(), error) {
	conn, release, err := p.pool.Checkout(ctx)
	if err != nil {
		return nil, nil, err
	}

	return conn.(*client.EtcdClient), release, nil
}

func (p *etcdPool) Close() error {
	return p.pool.Close()
}

/*
Create a registry backed by etcd from a configuration.
Reads and writes go through a bounded pool of connections; the watch loop
gets its own dedicated connection. A nil logger defaults to a noop logger.
*/
func Connect(conf Config, logger *zap.Logger) (*Registry, error) {
	clientOpts, optsErr := conf.Connection.clientOptions()
	if optsErr != nil {
		return nil, optsErr
	}

	poolOpts, poolErr := conf.Pool.poolOptions()
	if poolErr != nil {
		return nil, poolErr
	}

	connPool := pool.NewPool(poolOpts, func(ctx context.Context) (pool.Conn, error) {
		return client.Connect(ctx, clientOpts)
	})

	reg, regErr := New(Options{
		RootPath: conf.RootPath,
		Cache:    conf.CacheEnabled(),
		Logger:   logger,
		Pool:     &etcdPool{pool: connPool},
		Dial: func(ctx context.Context) (Coordinator, error) {
			return client.Connect(ctx, clientOpts)
		},
	})

	if regErr != nil {
		connPool.Close()
		return nil, regErr
	}

	return reg, nil
}
