package auth

import (
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is bcrypt's input limit. It counts bytes, not characters.
const MaxPasswordBytes = 72

var (
	// ErrPasswordMismatch is returned when a password does not match its stored hash.
	ErrPasswordMismatch = errors.New("password mismatch")
	// ErrPasswordTooLong is returned for passwords over MaxPasswordBytes.
	ErrPasswordTooLong = errors.New("password longer than 72 bytes")
)

// NormalizeCost maps an out-of-range bcrypt cost to the library default.
func NormalizeCost(cost int) int {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}
	return cost
}

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), NormalizeCost(cost))
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)); err != nil {
		return ErrPasswordMismatch
	}
	return nil
}

// IsBcryptHash reports whether stored looks like a bcrypt digest.
func IsBcryptHash(stored string) bool {
	return strings.HasPrefix(stored, "$2")
}

// VerifyStoredPassword checks plain against a stored credential. Records written
// before hashing was introduced hold the plaintext itself; those are accepted only
// when allowLegacy is set, and needsRehash tells the caller to upgrade the row.
func VerifyStoredPassword(stored, plain string, allowLegacy bool) (needsRehash bool, err error) {
	if IsBcryptHash(stored) {
		return false, ComparePassword(stored, plain)
	}
	if !allowLegacy || stored == "" {
		return false, ErrPasswordMismatch
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(plain)) != 1 {
		return false, ErrPasswordMismatch
	}
	return true, nil
}

// NewDummyHash builds the digest compared against for missing accounts. It must
// use the same cost as real hashes or unknown emails answer faster.
func NewDummyHash(cost int) []byte {
	hashed, err := bcrypt.GenerateFromPassword([]byte("helpdesk-timing-equalizer"), NormalizeCost(cost))
	if err != nil {
		panic(err)
	}
	return hashed
}

// BurnCompare performs a throwaway comparison against dummy.
func BurnCompare(dummy []byte, plain string) {
	_ = bcrypt.CompareHashAndPassword(dummy, []byte(plain))
}
