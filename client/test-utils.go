package client

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path"
	"strings"
	"testing"
	"time"
)

type etcdTestMember struct {
	name       string
	ip         string
	dataDir    string
	logFile    string
	clientPort int64
	peerPort   int64
}

func removeIfExists(fsPath string) error {
	_, err := os.Stat(fsPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}

		return nil
	}

	return os.RemoveAll(fsPath)
}

/*
Launch a trio of etcd nodes on loopback addresses, configured for mTLS with the certificates
expected under the test directory. A teardown method is returned to shut them down.
It is assumed that a recent etcd binary is located in the binary path.
*/
func launchTestEtcdCluster(testDir string) (func() []error, error) {
	caCertPath := path.Join(testDir, "certs", "ca.pem")
	serverCertPath := path.Join(testDir, "certs", "server.pem")
	serverKeyPath := path.Join(testDir, "certs", "server.key")

	members := []etcdTestMember{}
	for idx, ip := range []string{"127.0.0.1", "127.0.0.2", "127.0.0.3"} {
		name := fmt.Sprintf("etcd%d", idx)
		members = append(members, etcdTestMember{
			name:       name,
			ip:         ip,
			dataDir:    path.Join(testDir, name+"-data"),
			logFile:    path.Join(testDir, "etcd-logs", name+".log"),
			clientPort: 3379,
			peerPort:   3380,
		})
	}

	err := removeIfExists(path.Join(testDir, "etcd-logs"))
	if err != nil {
		return func() []error { return nil }, err
	}

	for _, member := range members {
		err := removeIfExists(member.dataDir)
		if err != nil {
			return func() []error { return nil }, err
		}
	}

	err = os.MkdirAll(path.Join(testDir, "etcd-logs"), 0770)
	if err != nil {
		return func() []error { return nil }, err
	}

	initialClusterArr := []string{}
	for _, member := range members {
		initialClusterArr = append(initialClusterArr, fmt.Sprintf("%s=https://%s:%d", member.name, member.ip, member.peerPort))
	}
	initialCluster := strings.Join(initialClusterArr, ",")

	cmds := []*exec.Cmd{}
	for _, member := range members {
		cmd := exec.Command(
			"etcd", "--name", member.name,
			"--advertise-client-urls", fmt.Sprintf("https://%s:%d", member.ip, member.clientPort),
			"--listen-client-urls", fmt.Sprintf("https://%s:%d", member.ip, member.clientPort),
			"--initial-advertise-peer-urls", fmt.Sprintf("https://%s:%d", member.ip, member.peerPort),
			"--listen-peer-urls", fmt.Sprintf("https://%s:%d", member.ip, member.peerPort),
			"--initial-cluster-token", "etcd-registry-test-cluster",
			"--initial-cluster", initialCluster,
			"--client-cert-auth",
			"--trusted-ca-file", caCertPath,
			"--cert-file", serverCertPath,
			"--key-file", serverKeyPath,
			"--peer-client-cert-auth",
			"--peer-trusted-ca-file", caCertPath,
			"--peer-cert-file", serverCertPath,
			"--peer-key-file", serverKeyPath,
			"--data-dir", member.dataDir,
			"--log-outputs", member.logFile,
			"--initial-cluster-state", "new",
		)
		err := cmd.Start()
		if err != nil {
			for _, cmd := range cmds {
				cmd.Process.Kill()
			}
			return func() []error { return nil }, err
		}
		cmds = append(cmds, cmd)
	}

	return func() []error {
		errs := []error{}
		for _, cmd := range cmds {
			err := cmd.Process.Kill()
			if err != nil {
				errs = append(errs, err)
			} else {
				cmd.Process.Wait()
			}
		}
		return errs
	}, nil
}

func setupTestEnv(t *testing.T, timeouts time.Duration, retryInterval time.Duration, retries uint64) *EtcdClient {
	cli, err := Connect(context.Background(), EtcdClientOptions{
		ClientCertPath:    "../test/certs/root.pem",
		ClientKeyPath:     "../test/certs/root.key",
		CaCertPath:        "../test/certs/ca.pem",
		EtcdEndpoints:     []string{"127.0.0.1:3379", "127.0.0.2:3379", "127.0.0.3:3379"},
		ConnectionTimeout: timeouts,
		RequestTimeout:    timeouts,
		RetryInterval:     retryInterval,
		Retries:           retries,
	})

	if err != nil {
		t.Fatalf("Test setup failed at the connection stage: %s", err.Error())
	}

	return cli
}
