package registry

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/Ferlab-Ste-Justine/etcd-registry/client"
	"github.com/Ferlab-Ste-Justine/etcd-registry/pool"
)

/*
Connection settings handed as-is to the coordination client. Durations are
strings in the format time.ParseDuration understands (ex: "10s").
*/
type ConnectionConfig struct {
	Endpoints         []string `yaml:"endpoints"`
	CaCertPath        string   `yaml:"ca_cert_path"`
	ClientCertPath    string   `yaml:"client_cert_path"`
	ClientKeyPath     string   `yaml:"client_key_path"`
	Username          string   `yaml:"username"`
	Password          string   `yaml:"password"`
	ConnectionTimeout string   `yaml:"connection_timeout"`
	RequestTimeout    string   `yaml:"request_timeout"`
	RetryInterval     string   `yaml:"retry_interval"`
	Retries           uint64   `yaml:"retries"`
}

/*
Connection pool settings, handed as-is to the pool.
*/
type PoolConfig struct {
	Capacity    int    `yaml:"capacity"`
	WaitTimeout string `yaml:"wait_timeout"`
	IdleTimeout string `yaml:"idle_timeout"`
}

type Config struct {
	RootPath string `yaml:"root_path"`
	//Defaults to true when absent
	Cache      *bool            `yaml:"cache"`
	Connection ConnectionConfig `yaml:"connection"`
	Pool       PoolConfig       `yaml:"pool"`
}

/*
Whether the registry should maintain a local mirror. Defaults to true.
*/
func (conf *Config) CacheEnabled() bool {
	return conf.Cache == nil || *conf.Cache
}

func parseDuration(field string, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.New(fmt.Sprintf("Failed to parse configuration field %s: %s", field, err.Error()))
	}

	return duration, nil
}

func (conf *ConnectionConfig) clientOptions() (client.EtcdClientOptions, error) {
	connectionTimeout, connErr := parseDuration("connection_timeout", conf.ConnectionTimeout)
	if connErr != nil {
		return client.EtcdClientOptions{}, connErr
	}

	requestTimeout, reqErr := parseDuration("request_timeout", conf.RequestTimeout)
	if reqErr != nil {
		return client.EtcdClientOptions{}, reqErr
	}

	retryInterval, retryErr := parseDuration("retry_interval", conf.RetryInterval)
	if retryErr != nil {
		return client.EtcdClientOptions{}, retryErr
	}

	return client.EtcdClientOptions{
		ClientCertPath:    conf.ClientCertPath,
		ClientKeyPath:     conf.ClientKeyPath,
		CaCertPath:        conf.CaCertPath,
		Username:          conf.Username,
		Password:          conf.Password,
		EtcdEndpoints:     conf.Endpoints,
		ConnectionTimeout: connectionTimeout,
		RequestTimeout:    requestTimeout,
		RetryInterval:     retryInterval,
		Retries:           conf.Retries,
	}, nil
}

func (conf *PoolConfig) poolOptions() (pool.PoolOptions, error) {
	waitTimeout, waitErr := parseDuration("wait_timeout", conf.WaitTimeout)
	if waitErr != nil {
		return pool.PoolOptions{}, waitErr
	}

	idleTimeout, idleErr := parseDuration("idle_timeout", conf.IdleTimeout)
	if idleErr != nil {
		return pool.PoolOptions{}, idleErr
	}

	return pool.PoolOptions{
		Capacity:    conf.Capacity,
		WaitTimeout: waitTimeout,
		IdleTimeout: idleTimeout,
	}, nil
}

/*
Load a registry configuration from a yaml file.
*/
func ConfigFromFile(path string) (Config, error) {
	var conf Config

	content, err := os.ReadFile(path)
	if err != nil {
		return conf, errors.New(fmt.Sprintf("Failed to read configuration file: %s", err.Error()))
	}

	unmarshalErr := yaml.Unmarshal(content, &conf)
	if unmarshalErr != nil {
		return conf, errors.New(fmt.Sprintf("Failed to parse configuration file: %s", unmarshalErr.Error()))
	}

	return conf, nil
}
