package pgasync

import (
	"crypto/md5" //nolint:gosec // required by the wire protocol, not used for security
	"encoding/hex"
)

// md5Password computes the PasswordMessage body Postgres expects in
// response to an AuthenticationMD5Password request:
// "md5" + hex(md5(hex(md5(password+user)) + salt)).
func md5Password(user, password string, salt [4]byte) string {
	inner := md5Hex(password + user)
	outer := md5Hex(inner + string(salt[:]))
	return "md5" + outer
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}
