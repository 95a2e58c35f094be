package kb

import (
	"context"
	"path/filepath"
	"time"

	ipcerrors "github.com/CMSgov/ipcoding-app/ipcoding/errors"
	"github.com/cenkalti/backoff/v4"
	"github.com/howeyc/fsnotify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Bursts of events from a single save are collapsed into one reload.
const settleDelay = 100 * time.Millisecond

// Watcher reloads a Store whenever its knowledge base file changes on disk.
type Watcher struct {
	store      *Store
	maxElapsed time.Duration
	logger     logrus.FieldLogger

	// OnReload, when set, is called with the outcome of every reload attempt.
	OnReload func(error)
}

// NewWatcher returns a watcher for store. A reload that fails to read or decode the file is
// retried with exponential backoff for at most maxElapsed, since editors and deploy tooling are
// often observed mid-write. A reload rejected by the gate is not retried.
func NewWatcher(store *Store, maxElapsed time.Duration, logger logrus.FieldLogger) *Watcher {
	return &Watcher{store: store, maxElapsed: maxElapsed, logger: logger}
}

// Run watches until ctx is done. The parent directory is watched so that files replaced by
// rename are still seen.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer fw.Close()

	target, err := filepath.Abs(w.store.Path())
	if err != nil {
		return errors.Wrapf(err, "failed to resolve %s", w.store.Path())
	}
	if err := fw.Watch(filepath.Dir(target)); err != nil {
		return errors.Wrapf(err, "failed to watch %s", filepath.Dir(target))
	}
	w.logger.WithField("path", target).Info("Watching knowledge base")

	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-fw.Event:
			if ev == nil || ev.IsDelete() {
				continue
			}
			if name, err := filepath.Abs(ev.Name); err != nil || name != target {
				continue
			}
			settle = time.After(settleDelay)
		case <-settle:
			settle = nil
			err := w.reload(ctx)
			if err != nil {
				w.logger.WithError(err).Error("Knowledge base reload failed, keeping previous snapshot")
			}
			if w.OnReload != nil {
				w.OnReload(err)
			}
		case err := <-fw.Error:
			if err != nil {
				w.logger.WithError(err).Warn("File watcher error")
			}
		}
	}
}

func (w *Watcher) reload(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = w.maxElapsed

	return backoff.Retry(func() error {
		err := w.store.Reload()
		var gateErr *ipcerrors.GateError
		if errors.As(err, &gateErr) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(b, ctx))
}
