package index

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/vinicius-lino-figueiredo/polodb/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/polodb/adapter/data"
	"github.com/vinicius-lino-figueiredo/polodb/domain"
)

type IndexTestSuite struct {
	suite.Suite
	idx domain.Index
}

func (s *IndexTestSuite) SetupTest() {
	s.idx = NewIndex(comparer.NewComparer())
}

func withID(id any) *data.D {
	d := data.NewD()
	d.Set("_id", id)
	return d
}

func (s *IndexTestSuite) TestInsertAndGet() {
	d := withID(int64(3))
	s.NoError(s.idx.Insert(int64(3), d))

	found, ok, err := s.idx.Get(int64(3))
	s.NoError(err)
	s.True(ok)
	s.Same(d, found)

	_, ok, err = s.idx.Get(int64(4))
	s.NoError(err)
	s.False(ok)
}

func (s *IndexTestSuite) TestDuplicateKey() {
	s.NoError(s.idx.Insert("a", withID("a")))
	err := s.idx.Insert("a", withID("a"))
	s.ErrorIs(err, domain.ErrDuplicateKey)
	s.Equal(1, s.idx.Len())
}

// Numeric keys are compared by value, not by type.
func (s *IndexTestSuite) TestNumericKeyEquality() {
	s.NoError(s.idx.Insert(int64(1), withID(int64(1))))
	_, ok, err := s.idx.Get(1.0)
	s.NoError(err)
	s.True(ok)
}

func (s *IndexTestSuite) TestAllInKeyOrder() {
	for _, k := range []int64{5, 1, 3, 2, 4} {
		s.NoError(s.idx.Insert(k, withID(k)))
	}

	var keys []any
	for d := range s.idx.All() {
		k, _ := d.Get("_id")
		keys = append(keys, k)
	}
	s.Equal([]any{int64(1), int64(2), int64(3), int64(4), int64(5)}, keys)
}

func (s *IndexTestSuite) TestRemove() {
	a, b := withID("a"), withID("b")
	s.NoError(s.idx.Insert("a", a))
	s.NoError(s.idx.Insert("b", b))

	s.NoError(s.idx.Remove("a", a))

	_, ok, err := s.idx.Get("a")
	s.NoError(err)
	s.False(ok)
	s.Equal(1, s.idx.Len())
	s.Len(slices.Collect(s.idx.All()), 1)

	// key can be reused
	s.NoError(s.idx.Insert("a", withID("a")))
}

func TestIndexTestSuite(t *testing.T) {
	suite.Run(t, new(IndexTestSuite))
}
