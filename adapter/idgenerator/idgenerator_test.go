package idgenerator

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type timeGetterMock struct {
	mock.Mock
}

func (t *timeGetterMock) GetTime() time.Time {
	return t.Called().Get(0).(time.Time)
}

type IDGeneratorTestSuite struct {
	suite.Suite
}

func (s *IDGeneratorTestSuite) TestLayout() {
	tg := new(timeGetterMock)
	tg.On("GetTime").Return(time.Unix(0x01020304, 0))
	seed := []byte{0xa, 0xb, 0xc, 0xd, 0xe, 0x00, 0x00, 0x01}
	ig := NewIDGenerator(WithReader(bytes.NewReader(seed)), WithTimeGetter(tg))

	id, err := ig.GenerateObjectID()
	s.NoError(err)
	s.Equal("010203040a0b0c0d0e000002", id.Hex())

	id, err = ig.GenerateObjectID()
	s.NoError(err)
	s.Equal("010203040a0b0c0d0e000003", id.Hex())
	tg.AssertNumberOfCalls(s.T(), "GetTime", 2)
}

func (s *IDGeneratorTestSuite) TestCounterWraps() {
	tg := new(timeGetterMock)
	tg.On("GetTime").Return(time.Unix(0, 0))
	seed := []byte{0, 0, 0, 0, 0, 0xff, 0xff, 0xff}
	ig := NewIDGenerator(WithReader(bytes.NewReader(seed)), WithTimeGetter(tg))

	id, err := ig.GenerateObjectID()
	s.NoError(err)
	s.Equal("000000000000000000000000", id.Hex())
}

func (s *IDGeneratorTestSuite) TestUnique() {
	ig := NewIDGenerator()
	seen := make(map[string]struct{})
	for range 1000 {
		id, err := ig.GenerateObjectID()
		s.NoError(err)
		_, dup := seen[id.Hex()]
		s.False(dup)
		seen[id.Hex()] = struct{}{}
	}
}

func (s *IDGeneratorTestSuite) TestReadError() {
	ig := NewIDGenerator(WithReader(bytes.NewReader(nil)))
	id, err := ig.GenerateObjectID()
	s.ErrorIs(err, io.EOF)
	s.True(id.IsZero())
}

func TestIDGeneratorTestSuite(t *testing.T) {
	suite.Run(t, new(IDGeneratorTestSuite))
}
