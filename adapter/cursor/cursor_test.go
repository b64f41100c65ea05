package cursor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/vinicius-lino-figueiredo/polodb/adapter/engine"
	"github.com/vinicius-lino-figueiredo/polodb/adapter/value"
	"github.com/vinicius-lino-figueiredo/polodb/domain"
)

type CursorTestSuite struct {
	suite.Suite
	eng *engine.Engine
}

func (s *CursorTestSuite) SetupTest() {
	var err error
	s.eng, err = engine.Open(context.Background(), engine.WithInMemoryOnly(true))
	s.Require().NoError(err)

	s.Require().NoError(s.eng.StartTransaction())
	s.Require().NoError(s.eng.CreateCollection("books"))
	for _, b := range []map[string]any{
		{"_id": 1, "title": "a"},
		{"_id": 2, "title": "b"},
	} {
		v, err := value.FromHost(s.eng, b)
		s.Require().NoError(err)
		_, err = s.eng.Insert("books", v.Handle())
		s.Require().NoError(err)
	}
	s.Require().NoError(s.eng.Commit())
}

func (s *CursorTestSuite) TearDownTest() {
	_ = s.eng.Close()
}

func (s *CursorTestSuite) find(filter any) *Cursor {
	var h domain.Handle
	if filter != nil {
		f, err := value.FromHost(s.eng, filter)
		s.Require().NoError(err)
		h = f.Handle()
	}
	cur, err := s.eng.Find("books", h)
	s.Require().NoError(err)
	return NewCursor(s.eng, cur)
}

func (s *CursorTestSuite) TestProtocol() {
	c := s.find(nil)
	s.Equal(domain.CursorPrimed, c.State())
	s.False(c.HasRow())
	_, err := c.Get()
	s.ErrorIs(err, domain.ErrNoRow)

	var titles []any
	s.Require().NoError(c.Step())
	for c.HasRow() {
		row, err := c.Get()
		s.Require().NoError(err)
		host, err := value.ToHost(row)
		s.Require().NoError(err)
		titles = append(titles, host.(map[string]any)["title"])
		s.Require().NoError(c.Step())
	}
	s.Equal([]any{"a", "b"}, titles)
	s.Equal(domain.CursorExhausted, c.State())

	_, err = c.Get()
	s.ErrorIs(err, domain.ErrContractViolation)
	s.NoError(c.Step())
	s.NoError(c.Err())
}

func (s *CursorTestSuite) TestFailure() {
	c := s.find(map[string]any{"title": map[string]any{"$where": "x"}})
	err := c.Step()
	s.ErrorAs(err, new(domain.ErrUnknownOperator))
	s.Equal(domain.CursorFailed, c.State())
	s.ErrorIs(c.Err(), domain.ErrEngine)
	s.NoError(c.Step())
	_, err = c.Get()
	s.ErrorIs(err, domain.ErrNoRow)
}

func (s *CursorTestSuite) TestScan() {
	type book struct {
		ID    int    `polodb:"_id"`
		Title string `polodb:"title"`
	}
	c := s.find(map[string]any{"title": "b"})

	var b book
	s.ErrorIs(c.Scan(&b), domain.ErrNoRow)

	s.Require().NoError(c.Step())
	s.Require().NoError(c.Scan(&b))
	s.Equal(book{ID: 2, Title: "b"}, b)
}

func (s *CursorTestSuite) TestClosedEngine() {
	c := s.find(nil)
	s.Require().NoError(s.eng.Close())
	s.ErrorIs(c.Step(), domain.ErrClosed)
	s.Equal(domain.CursorFailed, c.State())
}

func TestCursorTestSuite(t *testing.T) {
	suite.Run(t, new(CursorTestSuite))
}
