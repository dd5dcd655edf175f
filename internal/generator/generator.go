package generator

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// Generator is an interface that defines a method to generate a new value of type T.
// This can be used to generate unique identifiers, lazily iterate, etc.
type Generator[T any] interface {
	Next() (T, error)
}

// HexIDGenerator produces 128-bit random identifiers rendered as 32
// lowercase hex characters. They are safe to use as file names.
type HexIDGenerator struct{}

func (g *HexIDGenerator) Next() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(id[:]), nil
}

var _ Generator[string] = &HexIDGenerator{}
