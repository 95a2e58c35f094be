package kb

import (
	"io/ioutil"
	"path/filepath"
	"sync"
	"testing"

	ipcerrors "github.com/CMSgov/ipcoding-app/ipcoding/errors"
	"github.com/CMSgov/ipcoding-app/ipcoding/testUtils"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type StoreTestSuite struct {
	suite.Suite
	path    string
	cleanup func()
	hook    *test.Hook
	store   *Store
	issues  []string
}

func (s *StoreTestSuite) SetupTest() {
	s.path, s.cleanup = testUtils.CopyFileToTemporaryDirectory(s.T(), "testdata/small.json")
	s.issues = nil
	logger, hook := testUtils.GetLogger()
	s.hook = hook
	s.store = NewStore(s.path, "", func(*KnowledgeBase) []string { return s.issues }, logger)
}

func (s *StoreTestSuite) TearDownTest() {
	s.cleanup()
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (s *StoreTestSuite) write(content string) {
	s.Require().NoError(ioutil.WriteFile(s.path, []byte(content), 0600))
}

func (s *StoreTestSuite) TestSnapshotBeforeLoad() {
	s.Nil(s.store.Snapshot())
	s.Equal(uint64(0), s.store.Generation())
}

func (s *StoreTestSuite) TestLoadPublishes() {
	s.Require().NoError(s.store.Load())
	s.Equal("json-1", s.store.Snapshot().Version())
	s.Equal(uint64(1), s.store.Generation())
	s.Equal("Published knowledge base", s.hook.LastEntry().Message)
	s.Equal(s.path, s.hook.LastEntry().Data["path"])
}

func (s *StoreTestSuite) TestReloadSwapsSnapshot() {
	s.Require().NoError(s.store.Load())
	old := s.store.Snapshot()

	s.write(`{"version": "json-2", "master_code_index": {"31652": {"kind": "cpt", "work_rvu": 4.46}}}`)
	s.Require().NoError(s.store.Reload())

	s.Equal("json-2", s.store.Snapshot().Version())
	s.Equal(uint64(2), s.store.Generation())
	// Holders of the old snapshot still see a consistent view
	s.Equal("json-1", old.Version())
	s.Len(old.Codes(), 4)
}

func (s *StoreTestSuite) TestGateRejectionKeepsPrevious() {
	s.Require().NoError(s.store.Load())

	s.issues = []string{"Referential integrity: code 99999 referenced at bundling_rules[0].drop_codes[0] is not in the master code index"}
	s.write(`{"version": "json-2", "master_code_index": {}}`)
	err := s.store.Reload()

	var gateErr *ipcerrors.GateError
	s.Require().True(errors.As(err, &gateErr))
	s.Equal(s.issues, gateErr.Issues)
	s.Equal("json-1", s.store.Snapshot().Version())
	s.Equal(uint64(1), s.store.Generation())
	s.Equal("Rejected knowledge base", s.hook.LastEntry().Message)
}

func (s *StoreTestSuite) TestBadDocumentKeepsPrevious() {
	s.Require().NoError(s.store.Load())

	s.write(`{"version": "json-2", "master_code_ind`)
	err := s.store.Reload()

	var kbErr *ipcerrors.KnowledgeBaseError
	s.True(errors.As(err, &kbErr))
	s.Equal("json-1", s.store.Snapshot().Version())
}

func (s *StoreTestSuite) TestRVUTable() {
	table, err := filepath.Abs("testdata/rvu_table.tsv")
	s.Require().NoError(err)

	s.write(`{"version": "t", "master_code_index": {"31652": {"kind": "cpt"}, "31653": {"kind": "cpt", "work_rvu": 4.96}}}`)
	logger, _ := testUtils.GetLogger()
	store := NewStore(s.path, table, nil, logger)
	s.Require().NoError(store.Load())

	rvu, ok := store.Snapshot().TotalRVU("31652")
	s.True(ok)
	s.Equal(4.60, rvu)
	rvu, _ = store.Snapshot().TotalRVU("31653")
	s.Equal(4.96, rvu)

	store = NewStore(s.path, "testdata/missing.tsv", nil, logger)
	var kbErr *ipcerrors.KnowledgeBaseError
	s.True(errors.As(store.Load(), &kbErr))
}

func (s *StoreTestSuite) TestConcurrentReaders() {
	s.Require().NoError(s.store.Load())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				kb := s.store.Snapshot()
				assert.NotNil(s.T(), kb)
				assert.NotEmpty(s.T(), kb.Codes())
			}
		}()
	}
	for i := 0; i < 5; i++ {
		s.NoError(s.store.Reload())
	}
	wg.Wait()
	s.Equal(uint64(6), s.store.Generation())
}
