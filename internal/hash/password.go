package hash

import (
	"crypto/rand"
	"errors"
	"math/big"
)

const (
	upper  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lower  = "abcdefghijklmnopqrstuvwxyz"
	digits = "0123456789"
)

const InitialPasswordLength = 12

// GenerateInitialPassword returns a random password with at least one
// upper-case letter, one lower-case letter and one digit.
func GenerateInitialPassword(length int) (string, error) {
	if length < 3 {
		return "", errors.New("password length must be at least 3")
	}
	all := upper + lower + digits

	out := make([]byte, 0, length)
	for _, set := range []string{upper, lower, digits} {
		ch, err := pick(set)
		if err != nil {
			return "", err
		}
		out = append(out, ch)
	}
	for len(out) < length {
		ch, err := pick(all)
		if err != nil {
			return "", err
		}
		out = append(out, ch)
	}

	// Fisher-Yates so the first three positions are not predictable.
	for i := len(out) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		k := int(j.Int64())
		out[i], out[k] = out[k], out[i]
	}
	return string(out), nil
}

func pick(set string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
	if err != nil {
		return 0, err
	}
	return set[n.Int64()], nil
}
