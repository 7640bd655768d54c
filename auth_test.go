package pgasync

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMD5PasswordShape(t *testing.T) {
	got := md5Password("u", "p", [4]byte{0x01, 0x02, 0x03, 0x04})
	assert.True(t, strings.HasPrefix(got, "md5"))
	assert.Len(t, got, len("md5")+32)
}

func TestMD5PasswordIsDeterministic(t *testing.T) {
	salt := [4]byte{0x01, 0x02, 0x03, 0x04}
	assert.Equal(t, md5Password("u", "p", salt), md5Password("u", "p", salt))
}

func TestMD5PasswordVariesWithInputs(t *testing.T) {
	salt := [4]byte{0x01, 0x02, 0x03, 0x04}
	other := [4]byte{0xFF, 0xFF, 0xFF, 0xFF}

	base := md5Password("u", "p", salt)
	assert.NotEqual(t, base, md5Password("u", "other-password", salt))
	assert.NotEqual(t, base, md5Password("other-user", "p", salt))
	assert.NotEqual(t, base, md5Password("u", "p", other))
}
