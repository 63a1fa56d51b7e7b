package client

import (
	"context"
	"testing"
	"time"

	"github.com/Ferlab-Ste-Justine/etcd-registry/keymodels"
)

func TestWatchPrefixChanges(t *testing.T) {
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

	prefix := "/inside/"

	_, revision, getErr := cli.GetPrefix(prefix, 0)
	if getErr != nil {
		t.Errorf("Test watch prefix failed. Error occured getting the prefix keys: %s", getErr.Error())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watch := cli.SetContext(ctx).Watch(prefix, keymodels.WatchOptions{
		Revision:   revision + 1,
		IsPrefix:   true,
		TrimPrefix: true,
	})

	if _, err := cli.PutKey("/inside/key", "first"); err != nil {
		t.Errorf("Test watch prefix failed. Error occured putting a key: %s", err.Error())
	}
	if _, err := cli.PutKey("/inside/key", "second"); err != nil {
		t.Errorf("Test watch prefix failed. Error occured updating a key: %s", err.Error())
	}
	if _, err := cli.DeleteKey("/inside/key"); err != nil {
		t.Errorf("Test watch prefix failed. Error occured deleting a key: %s", err.Error())
	}

	received := []keymodels.KeyChange{}
	deadline := time.After(30 * time.Second)
	for len(received) < 3 {
		select {
		case result, ok := <-watch:
			if !ok {
				t.Errorf("Test watch prefix failed. Watch channel closed before all changes were received")
				return
			}
			if result.Error != nil {
				t.Errorf("Test watch prefix failed. Error occured while watching: %s", result.Error.Error())
				return
			}
			received = append(received, result.Changes...)
		case <-deadline:
			t.Errorf("Test watch prefix failed. Excepted 3 changes within the deadline and got %d", len(received))
			return
		}
	}

	if received[0].Type != keymodels.ChangePut || received[0].Key != "key" || received[0].Value != "first" {
		t.Errorf("Test watch prefix failed. Excepted the first change to be the trimmed put of the first value and it wasn't")
	}

	if received[1].Type != keymodels.ChangePut || received[1].Value != "second" {
		t.Errorf("Test watch prefix failed. Excepted the second change to be the put of the second value and it wasn't")
	}

	if received[2].Type != keymodels.ChangeDelete || received[2].Key != "key" {
		t.Errorf("Test watch prefix failed. Excepted the third change to be the deletion of the key and it wasn't")
	}

	if !(received[0].Revision < received[1].Revision && received[1].Revision < received[2].Revision) {
		t.Errorf("Test watch prefix failed. Excepted change revisions to be strictly increasing and they weren't")
	}
}
