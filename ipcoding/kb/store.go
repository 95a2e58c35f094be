package kb

import (
	"sync"
	"sync/atomic"

	ipcerrors "github.com/CMSgov/ipcoding-app/ipcoding/errors"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Gate inspects a freshly loaded knowledge base and returns the issues that block it from
// being served. An empty result accepts the knowledge base.
type Gate func(*KnowledgeBase) []string

// Store serves the current knowledge base snapshot. Loads run load -> gate -> publish; the
// published value is swapped atomically so in-flight derivations keep the snapshot they started
// with.
type Store struct {
	// first for 64 bit alignment of atomic access
	generation uint64

	path     string
	rvuTable string
	gate     Gate
	logger   logrus.FieldLogger

	// serializes loads; readers never take it
	mu      sync.Mutex
	current atomic.Value
}

// NewStore creates a store for the knowledge base at path. rvuTable may be empty. A nil gate
// accepts every document that decodes.
func NewStore(path, rvuTable string, gate Gate, logger logrus.FieldLogger) *Store {
	return &Store{path: path, rvuTable: rvuTable, gate: gate, logger: logger}
}

// Path is the knowledge base file the store reads.
func (s *Store) Path() string {
	return s.path
}

// Load reads, gates and publishes the knowledge base. On any failure the previously published
// snapshot, if there is one, stays live.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger := s.logger.WithField("path", s.path)

	kb, err := LoadFile(s.path)
	if err != nil {
		logger.WithError(err).Error("Failed to load knowledge base")
		return err
	}
	if s.rvuTable != "" {
		table, err := ReadRVUTable(s.rvuTable, logger)
		if err != nil {
			err = &ipcerrors.KnowledgeBaseError{Err: errors.Wrapf(err, "RVU table %s", s.rvuTable), Path: s.path}
			logger.WithError(err).Error("Failed to load RVU table")
			return err
		}
		kb = kb.WithRVUTable(table)
	}

	if s.gate != nil {
		if issues := s.gate(kb); len(issues) > 0 {
			for _, issue := range issues {
				logger.WithField("issue", issue).Warn("Knowledge base issue")
			}
			err := &ipcerrors.GateError{Path: s.path, Issues: issues}
			logger.WithError(err).Error("Rejected knowledge base")
			return err
		}
	}

	s.current.Store(kb)
	gen := atomic.AddUint64(&s.generation, 1)
	logger.WithFields(logrus.Fields{"version": kb.Version(), "generation": gen}).Info("Published knowledge base")
	return nil
}

// Reload is Load under the name callers use after the initial load.
func (s *Store) Reload() error {
	return s.Load()
}

// Snapshot returns the live knowledge base, or nil before the first successful load.
func (s *Store) Snapshot() *KnowledgeBase {
	kb, _ := s.current.Load().(*KnowledgeBase)
	return kb
}

// Generation counts successful publishes.
func (s *Store) Generation() uint64 {
	return atomic.LoadUint64(&s.generation)
}
