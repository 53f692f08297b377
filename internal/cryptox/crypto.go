// Package cryptox wraps the password hashing primitives used by the server.
package cryptox

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used for new hashes.
const DefaultCost = bcrypt.DefaultCost

// ErrPasswordMismatch is returned when a password does not match its hash.
var ErrPasswordMismatch = errors.New("password mismatch")

// dummyHash is compared against when there is no stored hash, so that the
// caller spends the same time whether or not the account exists.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("postboard-dummy-password"), DefaultCost)

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash. Any failure,
// including a malformed hash, yields ErrPasswordMismatch.
func CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrPasswordMismatch
	}
	return nil
}

// BurnCompare performs a throwaway comparison with the cost of a real one.
func BurnCompare(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}
