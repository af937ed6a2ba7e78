package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const tempPasswordLen = 10

// Each class contributes at least one character to a temporary password.
var passwordClasses = []string{
	"ABCDEFGHJKLMNPQRSTUVWXYZ",
	"abcdefghijkmnopqrstuvwxyz",
	"23456789",
	"!@#$%&*",
}

func randIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

// GenerateSecurePassword returns a temporary password for accounts created at
// the counter. Do not log the returned string.
func GenerateSecurePassword() (string, error) {
	result := make([]byte, 0, tempPasswordLen)
	all := ""
	for _, class := range passwordClasses {
		i, err := randIndex(len(class))
		if err != nil {
			return "", err
		}
		result = append(result, class[i])
		all += class
	}
	for len(result) < tempPasswordLen {
		i, err := randIndex(len(all))
		if err != nil {
			return "", err
		}
		result = append(result, all[i])
	}
	for i := len(result) - 1; i >= 1; i-- {
		j, err := randIndex(i + 1)
		if err != nil {
			return "", fmt.Errorf("shuffle: %w", err)
		}
		result[i], result[j] = result[j], result[i]
	}
	return string(result), nil
}
