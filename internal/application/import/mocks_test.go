package importapp

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/orgmap/backend/internal/domain/bulk"
	"github.com/orgmap/backend/internal/domain/organization"
	"github.com/orgmap/backend/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// MockImportHistoryRepository is a mock implementation of bulk.ImportHistoryRepository
type MockImportHistoryRepository struct {
	mock.Mock
}

func (m *MockImportHistoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*bulk.ImportHistory, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bulk.ImportHistory), args.Error(1)
}

func (m *MockImportHistoryRepository) FindAll(ctx context.Context, filter bulk.ImportHistoryFilter, page, pageSize int) (*bulk.ImportHistoryListResult, error) {
	args := m.Called(ctx, filter, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bulk.ImportHistoryListResult), args.Error(1)
}

func (m *MockImportHistoryRepository) Save(ctx context.Context, history *bulk.ImportHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

// MockUploadGuard is a mock implementation of shared.UploadGuard
type MockUploadGuard struct {
	mock.Mock
}

func (m *MockUploadGuard) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockUploadGuard) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockUploadGuard) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockUploadArchive is a mock implementation of UploadArchive
type MockUploadArchive struct {
	mock.Mock
}

func (m *MockUploadArchive) Archive(ctx context.Context, obj ArchiveObject) (string, error) {
	args := m.Called(ctx, obj)
	return args.String(0), args.Error(1)
}

// MockCatalogReader is a mock implementation of organization.CatalogReader
type MockCatalogReader struct {
	mock.Mock
}

func (m *MockCatalogReader) List(ctx context.Context, catalog organization.Catalog) ([]organization.NamedEntity, error) {
	args := m.Called(ctx, catalog)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]organization.NamedEntity), args.Error(1)
}

func (m *MockCatalogReader) GradesForJobRole(ctx context.Context, jobRoleID int64) ([]organization.Grade, error) {
	args := m.Called(ctx, jobRoleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]organization.Grade), args.Error(1)
}

// memoryHistoryRepo keeps histories in a map; it records every saved status
type memoryHistoryRepo struct {
	mu       sync.Mutex
	items    map[uuid.UUID]bulk.ImportHistory
	statuses []bulk.ImportStatus
}

func newMemoryHistoryRepo() *memoryHistoryRepo {
	return &memoryHistoryRepo{items: make(map[uuid.UUID]bulk.ImportHistory)}
}

func (r *memoryHistoryRepo) FindByID(_ context.Context, id uuid.UUID) (*bulk.ImportHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &h, nil
}

func (r *memoryHistoryRepo) FindAll(_ context.Context, _ bulk.ImportHistoryFilter, page, pageSize int) (*bulk.ImportHistoryListResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := &bulk.ImportHistoryListResult{Page: page, PageSize: pageSize, TotalCount: int64(len(r.items))}
	for _, h := range r.items {
		h := h
		result.Items = append(result.Items, &h)
	}
	return result, nil
}

func (r *memoryHistoryRepo) Save(_ context.Context, history *bulk.ImportHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[history.ID] = *history
	r.statuses = append(r.statuses, history.Status)
	return nil
}

func (r *memoryHistoryRepo) only() bulk.ImportHistory {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range r.items {
		return h
	}
	return bulk.ImportHistory{}
}

// memoryStore is an in-memory organization store. Do works on a copy that
// replaces the committed state only when fn succeeds.
type memoryStore struct {
	mu        sync.Mutex
	committed storeState

	// failOn makes the named repository method return failErr
	failOn  string
	failErr error
}

type storeState struct {
	names  map[organization.Catalog]map[string]int64
	pairs  map[organization.Association]time.Time
	nextID int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{committed: storeState{
		names: map[organization.Catalog]map[string]int64{
			organization.CatalogBusinessUnits: {},
			organization.CatalogJobRoles:      {},
			organization.CatalogGrades:        {},
		},
		pairs: map[organization.Association]time.Time{},
	}}
}

// seed stores names with explicit ids
func (s *memoryStore) seed(catalog organization.Catalog, ids map[string]int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, id := range ids {
		s.committed.names[catalog][name] = id
		if id > s.committed.nextID {
			s.committed.nextID = id
		}
	}
}

func (s *memoryStore) Names(catalog organization.Catalog) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := organization.NewNameSet()
	for n := range s.committed.names[catalog] {
		set.Add(n)
	}
	return set.Sorted()
}

func (s *memoryStore) Pairs() []organization.Association {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]organization.Association, 0, len(s.committed.pairs))
	for p := range s.committed.pairs {
		out = append(out, p)
	}
	return out
}

func (s *memoryStore) Do(ctx context.Context, fn func(ctx context.Context, repo organization.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryRepo{store: s, state: s.committed.clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.committed = tx.state
	return nil
}

func (st storeState) clone() storeState {
	out := storeState{
		names:  make(map[organization.Catalog]map[string]int64, len(st.names)),
		pairs:  make(map[organization.Association]time.Time, len(st.pairs)),
		nextID: st.nextID,
	}
	for c, names := range st.names {
		out.names[c] = make(map[string]int64, len(names))
		for n, id := range names {
			out.names[c][n] = id
		}
	}
	for p, at := range st.pairs {
		out.pairs[p] = at
	}
	return out
}

type memoryRepo struct {
	store *memoryStore
	state storeState
}

func (r *memoryRepo) fail(method string) error {
	if r.store.failOn == method {
		return r.store.failErr
	}
	return nil
}

func (r *memoryRepo) ExistingNames(_ context.Context, catalog organization.Catalog) (organization.NameSet, error) {
	if err := r.fail("ExistingNames"); err != nil {
		return nil, err
	}
	set := organization.NewNameSet()
	for n := range r.state.names[catalog] {
		set.Add(n)
	}
	return set, nil
}

func (r *memoryRepo) IDIndex(_ context.Context, catalog organization.Catalog) (organization.NameIndex, error) {
	if err := r.fail("IDIndex"); err != nil {
		return nil, err
	}
	ix := make(organization.NameIndex, len(r.state.names[catalog]))
	for n, id := range r.state.names[catalog] {
		ix[n] = id
	}
	return ix, nil
}

func (r *memoryRepo) InsertNames(_ context.Context, catalog organization.Catalog, names []string, _ time.Time) (int64, error) {
	if err := r.fail("InsertNames"); err != nil {
		return 0, err
	}
	var n int64
	for _, name := range names {
		if _, ok := r.state.names[catalog][name]; ok {
			continue
		}
		r.state.nextID++
		r.state.names[catalog][name] = r.state.nextID
		n++
	}
	return n, nil
}

func (r *memoryRepo) InsertAssociations(_ context.Context, pairs []organization.Association, createdAt time.Time) (int64, error) {
	if err := r.fail("InsertAssociations"); err != nil {
		return 0, err
	}
	var n int64
	for _, p := range pairs {
		if _, ok := r.state.pairs[p]; ok {
			continue
		}
		r.state.pairs[p] = createdAt
		n++
	}
	return n, nil
}
