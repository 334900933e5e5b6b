// Package shortid generates short codes and validates custom aliases.
package shortid

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
)

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Length of generated codes. 62^6 gives ~56 billion combinations, so random
// draws practically never collide; the store's unique constraint catches the
// rest.
const Length = 6

// Custom aliases may run a little longer than generated codes.
var aliasRe = regexp.MustCompile(`^[A-Za-z0-9]{6,8}$`)

// Generate returns a random code of the given length drawn uniformly from
// the 62-character alphanumeric alphabet.
func Generate(length int) string {
	var sb strings.Builder
	for i := 0; i < length; i++ {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		sb.WriteByte(alphabet[n.Int64()])
	}
	return sb.String()
}

// ValidAlias reports whether a caller-supplied alias is 6-8 alphanumeric
// characters.
func ValidAlias(alias string) bool {
	return aliasRe.MatchString(alias)
}
