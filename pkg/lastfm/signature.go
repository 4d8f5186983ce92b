package lastfm

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
)

// calculateSignature generates an MD5 signature for Last.fm API requests.
//
// The signature is the MD5 of the alphabetically sorted key+value pairs
// concatenated together with the API secret appended. It is required for
// all write operations and session creation.
func calculateSignature(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sigPlain string
	for _, k := range keys {
		sigPlain += k + params[k]
	}
	sigPlain += secret

	return MD5(sigPlain)
}

// MD5 returns the lowercase hex MD5 digest of s. Last.fm uses MD5 both for
// request signatures and for the password hash in the mobile auth flow.
func MD5(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
