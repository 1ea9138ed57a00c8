//go:build race

package auth

import "golang.org/x/crypto/bcrypt"

// DefaultBcryptCost drops to the library default under the race detector
const DefaultBcryptCost = bcrypt.DefaultCost

func passwordHashCost() int {
	return DefaultBcryptCost
}
