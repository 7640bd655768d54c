package pgerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"pgasync/codes"
)

func TestWithCodeRoundTrip(t *testing.T) {
	err := WithCode(errors.New("relation does not exist"), codes.UndefinedTable)
	assert.Equal(t, codes.UndefinedTable, GetCode(err))
}

func TestGetCodeDefaultsToUncategorized(t *testing.T) {
	assert.Equal(t, codes.Uncategorized, GetCode(errors.New("plain error")))
}

func TestFlattenFillsDefaults(t *testing.T) {
	err := WithCode(errors.New("duplicate key value"), codes.UniqueViolation)
	err = WithDetail(err, `Key (id)=(1) already exists.`)
	err = WithKind(err, DatabaseError)

	flat := Flatten(err)
	assert.Equal(t, DatabaseError, flat.Kind)
	assert.Equal(t, codes.UniqueViolation, flat.Code)
	assert.Equal(t, LevelError, flat.Severity)
	assert.Contains(t, flat.Detail, "already exists")
}

func TestFlattenNil(t *testing.T) {
	flat := Flatten(nil)
	assert.Equal(t, ClientError, flat.Kind)
	assert.Equal(t, LevelFatal, flat.Severity)
}

func TestWithPositionPresence(t *testing.T) {
	base := errors.New("syntax error")
	_, ok := GetPosition(base)
	assert.False(t, ok)

	decorated := WithPosition(base, 14)
	pos, ok := GetPosition(decorated)
	assert.True(t, ok)
	assert.EqualValues(t, 14, pos)
}

func TestConnectionQueryClientHelpers(t *testing.T) {
	assert.Equal(t, ConnectionError, GetKind(Connection(errors.New("dial tcp: timeout"))))
	assert.Equal(t, QueryError, GetKind(Query(errors.New("result index out of range"))))
	assert.Equal(t, ClientError, GetKind(Client(errors.New("connection closed"))))
	assert.Nil(t, Connection(nil))
}
