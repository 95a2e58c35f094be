package kb

import (
	"context"
	"io/ioutil"
	"testing"
	"time"

	ipcerrors "github.com/CMSgov/ipcoding-app/ipcoding/errors"
	"github.com/CMSgov/ipcoding-app/ipcoding/testUtils"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherReloadsOnChange(t *testing.T) {
	path, cleanup := testUtils.CopyFileToTemporaryDirectory(t, "testdata/small.json")
	defer cleanup()

	logger, _ := testUtils.GetLogger()
	rejectEmpty := func(kb *KnowledgeBase) []string {
		if len(kb.Codes()) == 0 {
			return []string{"empty master code index"}
		}
		return nil
	}
	store := NewStore(path, "", rejectEmpty, logger)
	require.NoError(t, store.Load())

	results := make(chan error, 10)
	w := NewWatcher(store, 2*time.Second, logger)
	w.OnReload = func(err error) { results <- err }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- w.Run(ctx) }()
	// Give the watcher time to register before writing
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, ioutil.WriteFile(path, []byte(`{"version": "json-2", "master_code_index": {"31652": {"kind": "cpt"}}}`), 0600))
	select {
	case err := <-results:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after the file changed")
	}
	assert.Equal(t, "json-2", store.Snapshot().Version())

	require.NoError(t, ioutil.WriteFile(path, []byte(`{"version": "json-3", "master_code_index": {}}`), 0600))
	select {
	case err := <-results:
		var gateErr *ipcerrors.GateError
		assert.True(t, errors.As(err, &gateErr))
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after the file changed")
	}
	assert.Equal(t, "json-2", store.Snapshot().Version())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcherMissingDirectory(t *testing.T) {
	logger, _ := testUtils.GetLogger()
	store := NewStore("/does/not/exist/kb.yaml", "", nil, logger)
	err := NewWatcher(store, time.Second, logger).Run(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to watch")
}
