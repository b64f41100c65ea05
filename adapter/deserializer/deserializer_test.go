package deserializer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vinicius-lino-figueiredo/polodb/adapter/data"
	"github.com/vinicius-lino-figueiredo/polodb/adapter/serializer"
	"github.com/vinicius-lino-figueiredo/polodb/domain"
)

var ctx = context.Background()

type DeserializerTestSuite struct {
	suite.Suite
	d domain.Deserializer
}

func (s *DeserializerTestSuite) SetupTest() {
	s.d = NewDeserializer()
}

func (s *DeserializerTestSuite) TestInsertLine() {
	r, err := s.d.Deserialize(ctx, []byte(`{"$$insert":"books","doc":{"_id":{"$numberLong":"7"},"n":{"$numberDouble":"1.5"},"tags":["a",null]},"tx":"t1"}`))
	s.NoError(err)
	s.Equal(domain.OpInsert, r.Op)
	s.Equal("books", r.Collection)
	s.Equal("t1", r.TxID)

	doc := r.Doc.(*data.D)
	s.Equal([]string{"_id", "n", "tags"}, doc.Keys())
	id, _ := doc.Get("_id")
	s.Equal(int64(7), id)
	n, _ := doc.Get("n")
	s.Equal(1.5, n)
	tags, _ := doc.Get("tags")
	s.Equal(2, tags.(*data.A).Len())
	s.Nil(tags.(*data.A).Index(1))
}

// Every kind survives a serialize and deserialize cycle.
func (s *DeserializerTestSuite) TestRoundTrip() {
	oid := primitive.NewObjectID()
	inner := data.NewD()
	inner.Set("ok", true)
	doc := data.NewD()
	doc.Set("_id", oid)
	doc.Set("i", int64(1<<40))
	doc.Set("d", 2.0)
	doc.Set("s", "str")
	doc.Set("null", nil)
	doc.Set("arr", data.NewA(int64(1), "x"))
	doc.Set("inner", inner)

	ser := serializer.NewSerializer()
	b, err := ser.Serialize(ctx, domain.Record{Op: domain.OpUpdate, Collection: "c", TxID: "t", Doc: doc})
	s.NoError(err)

	r, err := s.d.Deserialize(ctx, b)
	s.NoError(err)
	s.Equal(domain.OpUpdate, r.Op)
	s.Equal(doc, r.Doc)
}

func (s *DeserializerTestSuite) TestCommitLine() {
	r, err := s.d.Deserialize(ctx, []byte(`{"$$commit":"t","at":{"$date":{"$numberLong":"1704164645000"}}}`))
	s.NoError(err)
	s.Equal(domain.OpCommit, r.Op)
	s.Equal("t", r.TxID)
	s.True(r.At.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))
}

func (s *DeserializerTestSuite) TestMalformed() {
	lines := []string{
		`{"$$insert":"c","doc`,
		`{}`,
		`{"$$drop":"c","tx":"t"}`,
		`{"$$insert":1,"tx":"t"}`,
		`{"$$insert":"c","doc":1,"tx":"t"}`,
		`{"$$create":"c"}`,
	}
	for _, l := range lines {
		_, err := s.d.Deserialize(ctx, []byte(l))
		s.Error(err, l)
	}
}

func TestDeserializerTestSuite(t *testing.T) {
	suite.Run(t, new(DeserializerTestSuite))
}
