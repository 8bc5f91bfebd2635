package booking

import (
	"crypto/rand"
	"math/big"
)

const (
	referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	referenceLength   = 6
)

// ReferenceGenerator returns a candidate booking reference; uniqueness is checked by the caller.
type ReferenceGenerator func() (string, error)

func RandomReference() (string, error) {
	buf := make([]byte, referenceLength)
	max := big.NewInt(int64(len(referenceAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = referenceAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// ValidReference reports whether ref has the booking reference shape.
func ValidReference(ref string) bool {
	if len(ref) != referenceLength {
		return false
	}
	for i := 0; i < len(ref); i++ {
		c := ref[i]
		if !(c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
