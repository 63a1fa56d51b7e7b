package client

import (
	"testing"
	"time"

	"github.com/Ferlab-Ste-Justine/etcd-registry/keymodels"
)

func TestKeyOperations(t *testing.T) {
	tearDown, launchErr := launchTestEtcdCluster("../test")
	if launchErr != nil {
		t.Errorf("Error occured launching test etcd cluster: %s", launchErr.Error())
		return
	}

	defer func() {
		errs := tearDown()
		if len(errs) > 0 {
			t.Errorf("Errors occured tearing down etcd cluster: %s", errs[0].Error())
		}
	}()

	retryInterval, _ := time.ParseDuration("1s")
	timeouts, _ := time.ParseDuration("10s")
	cli := setupTestEnv(t, timeouts, retryInterval, 10)
	defer cli.Close()

	info, getErr := cli.GetKey("/under/test/key", keymodels.GetKeyOptions{})
	if getErr != nil {
		t.Errorf("Test key operations failed. Error occured getting an absent key: %s", getErr.Error())
	}
	if info.Found() {
		t.Errorf("Test key operations failed. Excepted an absent key to mark as not found and it didn't")
	}

	putRev, putErr := cli.PutKey("/under/test/key", "value")
	if putErr != nil {
		t.Errorf("Test key operations failed. Error occured putting a key: %s", putErr.Error())
	}
	if putRev <= 0 {
		t.Errorf("Test key operations failed. Excepted the put to return a positive revision and it didn't")
	}

	info, getErr = cli.GetKey("/under/test/key", keymodels.GetKeyOptions{})
	if getErr != nil {
		t.Errorf("Test key operations failed. Error occured getting the key back: %s", getErr.Error())
	}
	if !info.Found() || info.Value != "value" {
		t.Errorf("Test key operations failed. Excepted the key to be found with the written value and it wasn't")
	}

	currentRev, revErr := cli.CurrentRevision()
	if revErr != nil {
		t.Errorf("Test key operations failed. Error occured getting the current revision: %s", revErr.Error())
	}
	if currentRev < putRev {
		t.Errorf("Test key operations failed. Excepted the current revision to be at least the put revision and it wasn't")
	}

	cli.PutKey("/under/test/other", "other")
	keys, prefixRev, prefixErr := cli.GetPrefix("/under/test/", 0)
	if prefixErr != nil {
		t.Errorf("Test key operations failed. Error occured getting the prefix keys: %s", prefixErr.Error())
	}
	if len(keys) != 2 {
		t.Errorf("Test key operations failed. Excepted the prefix read to return 2 keys and it returned %d", len(keys))
	}
	if prefixRev < putRev {
		t.Errorf("Test key operations failed. Excepted the prefix read revision to be at least the put revision and it wasn't")
	}

	//Historical read at the revision before the second key was written
	keys, _, prefixErr = cli.GetPrefix("/under/test/", putRev)
	if prefixErr != nil {
		t.Errorf("Test key operations failed. Error occured getting the prefix keys at a past revision: %s", prefixErr.Error())
	}
	if len(keys) != 1 {
		t.Errorf("Test key operations failed. Excepted the historical prefix read to return 1 key and it returned %d", len(keys))
	}

	delRev, delErr := cli.DeleteKey("/under/test/key")
	if delErr != nil {
		t.Errorf("Test key operations failed. Error occured deleting the key: %s", delErr.Error())
	}
	if delRev <= putRev {
		t.Errorf("Test key operations failed. Excepted the deletion revision to be past the put revision and it wasn't")
	}

	info, getErr = cli.GetKey("/under/test/key", keymodels.GetKeyOptions{})
	if getErr != nil {
		t.Errorf("Test key operations failed. Error occured getting the deleted key: %s", getErr.Error())
	}
	if info.Found() {
		t.Errorf("Test key operations failed. Excepted the deleted key to mark as not found and it didn't")
	}
}
