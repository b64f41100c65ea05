package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/vinicius-lino-figueiredo/polodb/domain"
)

// engineMock only implements the transaction surface. Calling anything else
// panics on the nil embedded interface.
type engineMock struct {
	mock.Mock
	domain.Engine
}

// String is declared by both embedded types.
func (e *engineMock) String(h domain.Handle) (string, error) {
	call := e.Called(h)
	return call.String(0), call.Error(1)
}

func (e *engineMock) TxState() domain.TxState {
	return e.Called().Get(0).(domain.TxState)
}

func (e *engineMock) StartTransaction() error {
	return e.Called().Error(0)
}

func (e *engineMock) Commit() error {
	return e.Called().Error(0)
}

func (e *engineMock) Rollback() error {
	return e.Called().Error(0)
}

func (e *engineMock) CreateCollection(name string) error {
	return e.Called(name).Error(0)
}

type DatabaseTestSuite struct {
	suite.Suite
	db *Database
}

func (s *DatabaseTestSuite) SetupTest() {
	var err error
	s.db, err = Open(context.Background(), MemoryPath)
	s.Require().NoError(err)
}

func (s *DatabaseTestSuite) TearDownTest() {
	_ = s.db.Close()
}

func (s *DatabaseTestSuite) TestReopen() {
	path := filepath.Join(s.T().TempDir(), "test.db")

	db, err := Open(context.Background(), path)
	s.Require().NoError(err)
	s.Require().NoError(db.CreateCollection("books"))
	_, err = db.Collection("books").InsertHost(map[string]any{"_id": 3, "name": "2333"})
	s.Require().NoError(err)
	s.Require().NoError(db.Close())

	db, err = Open(context.Background(), path)
	s.Require().NoError(err)
	defer db.Close()

	res, err := db.Collection("books").Find(map[string]any{"name": "2333"})
	s.NoError(err)
	s.Equal([]map[string]any{{"_id": int64(3), "name": "2333"}}, res)
}

func (s *DatabaseTestSuite) TestRollback() {
	s.Require().NoError(s.db.CreateCollection("books"))
	books := s.db.Collection("books")

	s.Require().NoError(s.db.StartTransaction())
	_, err := books.InsertHost(map[string]any{"_id": 4, "name": "rollback"})
	s.Require().NoError(err)

	res, err := books.Find(map[string]any{"name": "rollback"})
	s.NoError(err)
	s.Len(res, 1)

	s.Require().NoError(s.db.Rollback())
	res, err = books.Find(map[string]any{"name": "rollback"})
	s.NoError(err)
	s.Len(res, 0)
	s.Equal(domain.TxIdle, s.db.TxState())
}

func (s *DatabaseTestSuite) TestCreateCollectionTwice() {
	s.Require().NoError(s.db.CreateCollection("c"))
	err := s.db.CreateCollection("c")
	s.ErrorIs(err, domain.ErrCollectionExists)
	s.Equal(domain.TxIdle, s.db.TxState())

	names, err := s.db.Collections()
	s.NoError(err)
	s.Equal([]string{"c"}, names)
}

func (s *DatabaseTestSuite) TestCreateCollectionInTransaction() {
	s.Require().NoError(s.db.StartTransaction())
	s.Require().NoError(s.db.CreateCollection("a"))
	s.ErrorIs(s.db.CreateCollection("a"), domain.ErrCollectionExists)
	s.Equal(domain.TxActive, s.db.TxState())
	s.Require().NoError(s.db.Rollback())

	names, err := s.db.Collections()
	s.NoError(err)
	s.Empty(names)
}

func (s *DatabaseTestSuite) TestInsertIsAtomic() {
	s.Require().NoError(s.db.CreateCollection("books"))
	books := s.db.Collection("books")

	_, err := books.InsertHost(map[string]any{"_id": 1, "a.b": 2})
	s.ErrorAs(err, new(domain.ErrFieldName))
	s.Equal(domain.TxIdle, s.db.TxState())

	n, err := books.Count(nil)
	s.NoError(err)
	s.Zero(n)
}

func (s *DatabaseTestSuite) TestUpdateIsAtomicInTransaction() {
	s.Require().NoError(s.db.CreateCollection("books"))
	books := s.db.Collection("books")
	_, err := books.InsertHost(map[string]any{"_id": 1, "a": 1})
	s.Require().NoError(err)
	_, err = books.InsertHost(map[string]any{"_id": 2, "a": "x"})
	s.Require().NoError(err)

	s.Require().NoError(s.db.StartTransaction())
	n, err := books.Update(nil, map[string]any{"$inc": map[string]any{"a": 1}})
	s.Error(err)
	s.Zero(n)
	s.Require().NoError(s.db.Commit())

	res, err := books.Find(map[string]any{"_id": 1})
	s.NoError(err)
	s.Equal([]map[string]any{{"_id": int64(1), "a": int64(1)}}, res)
}

func (s *DatabaseTestSuite) TestInsertMintsID() {
	s.Require().NoError(s.db.CreateCollection("books"))
	doc, err := s.db.Document(map[string]any{"name": "x"})
	s.Require().NoError(err)

	key, err := s.db.Collection("books").Insert(doc)
	s.Require().NoError(err)
	k, err := key.Kind()
	s.NoError(err)
	s.Equal(domain.KindObjectID, k)

	id, ok, err := doc.Get("_id")
	s.NoError(err)
	s.True(ok)
	a, _ := id.AsObjectID()
	b, _ := key.AsObjectID()
	s.True(a.Equal(b))
}

func (s *DatabaseTestSuite) TestDocumentExpected() {
	_, err := s.db.Document(5)
	s.ErrorIs(err, domain.ErrDocumentExpected)

	s.Require().NoError(s.db.CreateCollection("books"))
	_, err = s.db.Collection("books").Find([]any{1})
	s.ErrorIs(err, domain.ErrDocumentExpected)
	_, err = s.db.Collection("books").Update(nil, nil)
	s.ErrorIs(err, domain.ErrDocumentExpected)
}

func (s *DatabaseTestSuite) TestCollectionOps() {
	s.Require().NoError(s.db.CreateCollection("books"))
	books := s.db.Collection("books")
	s.Equal("books", books.Name())

	for i := range 3 {
		_, err := books.InsertHost(bson.D{{Key: "_id", Value: i}, {Key: "n", Value: i * 10}})
		s.Require().NoError(err)
	}

	n, err := books.Update(map[string]any{"n": map[string]any{"$gte": 10}}, map[string]any{"$inc": map[string]any{"n": 1}})
	s.NoError(err)
	s.Equal(int64(2), n)

	removed, err := books.Delete(0)
	s.NoError(err)
	s.True(removed)
	removed, err = books.Delete(0)
	s.NoError(err)
	s.False(removed)

	ordered, err := books.FindOrdered(nil)
	s.NoError(err)
	s.Equal([]bson.D{
		{{Key: "_id", Value: int64(1)}, {Key: "n", Value: int64(11)}},
		{{Key: "_id", Value: int64(2)}, {Key: "n", Value: int64(21)}},
	}, ordered)

	count, err := books.Count(map[string]any{"n": 21})
	s.NoError(err)
	s.Equal(int64(1), count)
}

func (s *DatabaseTestSuite) TestFindInto() {
	s.Require().NoError(s.db.CreateCollection("books"))
	books := s.db.Collection("books")
	_, err := books.InsertHost(map[string]any{"_id": 1, "title": "a"})
	s.Require().NoError(err)

	type book struct {
		ID    int64  `polodb:"_id"`
		Title string `polodb:"title"`
	}
	var res []book
	s.NoError(books.FindInto(nil, &res))
	s.Equal([]book{{ID: 1, Title: "a"}}, res)
}

func (s *DatabaseTestSuite) TestMissingCollection() {
	_, err := s.db.Collection("nope").FindAll()
	s.ErrorIs(err, domain.ErrCollectionNotFound)

	_, err = s.db.Collection("nope").InsertHost(map[string]any{"a": 1})
	s.ErrorIs(err, domain.ErrCollectionNotFound)
	s.Equal(domain.TxIdle, s.db.TxState())
}

func (s *DatabaseTestSuite) TestClosed() {
	doc, err := s.db.NewDocument()
	s.Require().NoError(err)
	s.Require().NoError(s.db.Close())

	_, err = doc.Len()
	s.ErrorIs(err, domain.ErrClosed)
	s.ErrorIs(s.db.CreateCollection("x"), domain.ErrClosed)
	s.ErrorIs(s.db.Close(), domain.ErrClosed)
}

func (s *DatabaseTestSuite) TestMetrics() {
	reg := prometheus.NewRegistry()
	db, err := Open(context.Background(), MemoryPath, WithMetrics(reg))
	s.Require().NoError(err)
	defer db.Close()

	s.Require().NoError(db.CreateCollection("a"))
	families, err := reg.Gather()
	s.Require().NoError(err)
	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	s.True(names["polodb_transactions_total"])
	s.True(names["polodb_collections"])
}

func (s *DatabaseTestSuite) TestBracketCommits() {
	m := new(engineMock)
	m.On("TxState").Return(domain.TxIdle)
	m.On("StartTransaction").Return(nil).Once()
	m.On("CreateCollection", "a").Return(nil).Once()
	m.On("Commit").Return(nil).Once()

	db, err := Open(context.Background(), MemoryPath, WithEngine(m))
	s.Require().NoError(err)
	s.NoError(db.CreateCollection("a"))
	m.AssertExpectations(s.T())
}

func (s *DatabaseTestSuite) TestBracketJoinsActive() {
	m := new(engineMock)
	m.On("TxState").Return(domain.TxActive)
	m.On("CreateCollection", "a").Return(domain.ErrCollectionExists).Once()

	db, err := Open(context.Background(), MemoryPath, WithEngine(m))
	s.Require().NoError(err)
	s.ErrorIs(db.CreateCollection("a"), domain.ErrCollectionExists)
	m.AssertExpectations(s.T())
	m.AssertNotCalled(s.T(), "Rollback")
}

func (s *DatabaseTestSuite) TestBracketRollbackFails() {
	errRollback := errors.New("rollback error")
	m := new(engineMock)
	m.On("TxState").Return(domain.TxIdle)
	m.On("StartTransaction").Return(nil).Once()
	m.On("CreateCollection", "a").Return(domain.ErrCollectionExists).Once()
	m.On("Rollback").Return(errRollback).Once()

	db, err := Open(context.Background(), MemoryPath, WithEngine(m))
	s.Require().NoError(err)
	err = db.CreateCollection("a")
	s.ErrorIs(err, domain.ErrCollectionExists)
	s.ErrorIs(err, errRollback)
	m.AssertExpectations(s.T())
	m.AssertNotCalled(s.T(), "Commit")
}

func TestDatabaseTestSuite(t *testing.T) {
	suite.Run(t, new(DatabaseTestSuite))
}
