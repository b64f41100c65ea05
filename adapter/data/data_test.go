package data

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vinicius-lino-figueiredo/polodb/domain"
)

type DataTestSuite struct {
	suite.Suite
}

func (s *DataTestSuite) TestSetKeepsPosition() {
	d := NewD()
	d.Set("a", int64(1))
	d.Set("b", int64(2))
	d.Set("a", "x")

	s.Equal([]string{"a", "b"}, d.Keys())
	v, ok := d.Get("a")
	s.True(ok)
	s.Equal("x", v)
	s.Equal(2, d.Len())
}

func (s *DataTestSuite) TestUnset() {
	d := NewD()
	d.Set("a", int64(1))
	d.Set("b", int64(2))

	s.True(d.Unset("a"))
	s.False(d.Unset("a"))
	s.Equal([]string{"b"}, d.Keys())
	_, ok := d.Get("a")
	s.False(ok)
}

func (s *DataTestSuite) TestCloneIsDeep() {
	inner := NewD()
	inner.Set("x", int64(1))
	d := NewD()
	d.Set("inner", inner)
	d.Set("list", NewA(int64(1)))

	c := Clone(d).(*D)
	inner.Set("x", int64(2))
	l, _ := d.Get("list")
	l.(*A).Push(int64(2))

	ci, _ := c.Get("inner")
	x, _ := ci.(*D).Get("x")
	s.Equal(int64(1), x)
	cl, _ := c.Get("list")
	s.Equal(1, cl.(*A).Len())
}

func (s *DataTestSuite) TestBSONRoundTripKeepsOrder() {
	oid := primitive.NewObjectID()
	in := bson.D{
		{Key: "z", Value: int32(3)},
		{Key: "_id", Value: oid},
		{Key: "a", Value: bson.A{"s", 1.5, true, nil}},
		{Key: "n", Value: bson.D{{Key: "k", Value: int64(9)}}},
	}

	v, err := FromBSON(in)
	s.NoError(err)
	d := v.(*D)
	s.Equal([]string{"z", "_id", "a", "n"}, d.Keys())
	z, _ := d.Get("z")
	s.Equal(int64(3), z)

	out := ToBSON(d).(bson.D)
	s.Equal(bson.D{
		{Key: "z", Value: int64(3)},
		{Key: "_id", Value: oid},
		{Key: "a", Value: bson.A{"s", 1.5, true, nil}},
		{Key: "n", Value: bson.D{{Key: "k", Value: int64(9)}}},
	}, out)
}

func (s *DataTestSuite) TestFromBSONUnsupported() {
	_, err := FromBSON(bson.D{{Key: "t", Value: primitive.DateTime(0)}})
	s.ErrorIs(err, domain.ErrTypeMismatch)
}

func (s *DataTestSuite) TestKind() {
	cases := []struct {
		v    any
		kind domain.Kind
	}{
		{nil, domain.KindNull},
		{int64(1), domain.KindInt},
		{1.0, domain.KindDouble},
		{true, domain.KindBoolean},
		{"s", domain.KindString},
		{primitive.NewObjectID(), domain.KindObjectID},
		{NewA(), domain.KindArray},
		{NewD(), domain.KindDocument},
	}
	for _, c := range cases {
		k, err := Kind(c.v)
		s.NoError(err)
		s.Equal(c.kind, k)
	}
	_, err := Kind(int32(1))
	s.ErrorIs(err, domain.ErrTypeMismatch)
}

func (s *DataTestSuite) TestValues() {
	a := NewA(int64(1), "b")
	s.Equal([]any{int64(1), "b"}, slices.Collect(a.Values()))
	s.Equal("b", a.Index(1))
}

func TestDataTestSuite(t *testing.T) {
	suite.Run(t, new(DataTestSuite))
}
