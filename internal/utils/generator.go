package utils

import (
	"crypto/rand"
	"math/big"
)

const (
	DefaultSlugLength = 6
	// Ambiguous characters (0/O, 1/l/I) are left out.
	alphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

func GenerateSlug() (string, error) {
	return GenerateSlugWithLength(DefaultSlugLength)
}

func GenerateSlugWithLength(length int) (string, error) {
	slug := make([]byte, length)
	alphabetLen := big.NewInt(int64(len(alphabet)))

	for i := range slug {
		randomIndex, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", err
		}
		slug[i] = alphabet[randomIndex.Int64()]
	}

	return string(slug), nil
}
