package testutil

import (
	"context"
	"sync"

	"github.com/store/backend/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// MockRepository is a testify mock of shared.Repository
type MockRepository[T any] struct {
	mock.Mock
}

func (m *MockRepository[T]) Create(ctx context.Context, entity *T) error {
	return m.Called(ctx, entity).Error(0)
}

func (m *MockRepository[T]) Update(ctx context.Context, entity *T) error {
	return m.Called(ctx, entity).Error(0)
}

func (m *MockRepository[T]) FindByID(ctx context.Context, id int64) (*T, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*T), args.Error(1)
}

func (m *MockRepository[T]) FindAll(ctx context.Context, page shared.PageRequest) (shared.Page[T], error) {
	args := m.Called(ctx, page)
	return args.Get(0).(shared.Page[T]), args.Error(1)
}

func (m *MockRepository[T]) DeleteByID(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRepository[T]) ExistsByID(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository[T]) FindAllIDs(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	args := m.Called(ctx, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockRepository[T]) FindIDsReferencing(ctx context.Context, column string, ids []int64) ([]int64, error) {
	args := m.Called(ctx, column, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

// StubMirror is a shared.SearchMirror whose calls can be made to fail.
// It records the identities it indexed and deleted.
type StubMirror[T any, P shared.Record[T]] struct {
	mu        sync.Mutex
	docs      map[int64]T
	indexed   []int64
	deleted   []int64
	failWrite error
	failRead  error
}

// NewStubMirror creates an empty stub mirror
func NewStubMirror[T any, P shared.Record[T]]() *StubMirror[T, P] {
	return &StubMirror[T, P]{docs: make(map[int64]T)}
}

// FailWrites makes Index, DeleteByID and the index operations return err; nil restores them
func (s *StubMirror[T, P]) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrite = err
}

// FailReads makes Search return err; nil restores it
func (s *StubMirror[T, P]) FailReads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRead = err
}

func (s *StubMirror[T, P]) Index(ctx context.Context, entity *T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrite != nil {
		return s.failWrite
	}
	id := P(entity).GetID()
	s.docs[id] = *entity
	s.indexed = append(s.indexed, id)
	return nil
}

func (s *StubMirror[T, P]) DeleteByID(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrite != nil {
		return s.failWrite
	}
	delete(s.docs, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *StubMirror[T, P]) Search(ctx context.Context, query string, page shared.PageRequest) (shared.Page[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRead != nil {
		return shared.Page[T]{}, s.failRead
	}
	items := make([]T, 0, len(s.docs))
	for _, d := range s.docs {
		items = append(items, d)
	}
	return shared.NewPage(items, int64(len(items)), page), nil
}

func (s *StubMirror[T, P]) EnsureIndex(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failWrite
}

func (s *StubMirror[T, P]) DeleteIndex(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrite != nil {
		return s.failWrite
	}
	s.docs = make(map[int64]T)
	return nil
}

// Has reports whether a document with the identity is indexed
func (s *StubMirror[T, P]) Has(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[id]
	return ok
}

// Doc returns the indexed document
func (s *StubMirror[T, P]) Doc(id int64) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	return d, ok
}

// Indexed returns the identities passed to Index, in call order
func (s *StubMirror[T, P]) Indexed() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.indexed...)
}

// Deleted returns the identities passed to DeleteByID, in call order
func (s *StubMirror[T, P]) Deleted() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.deleted...)
}

// QueuedTask is one call to RecordingQueue.Enqueue
type QueuedTask struct {
	EntityType string
	EntityID   int64
	Operation  shared.SyncOperation
	Cause      error
}

// RecordingQueue collects search sync tasks instead of storing them
type RecordingQueue struct {
	mu    sync.Mutex
	tasks []QueuedTask
	err   error
}

// FailWith makes Enqueue return err
func (q *RecordingQueue) FailWith(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.err = err
}

func (q *RecordingQueue) Enqueue(ctx context.Context, entityType string, id int64, op shared.SyncOperation, cause error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.tasks = append(q.tasks, QueuedTask{EntityType: entityType, EntityID: id, Operation: op, Cause: cause})
	return nil
}

// Tasks returns the queued tasks in call order
func (q *RecordingQueue) Tasks() []QueuedTask {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]QueuedTask(nil), q.tasks...)
}
