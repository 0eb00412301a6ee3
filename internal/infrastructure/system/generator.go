package system

import (
	"fmt"

	"github.com/google/uuid"
)

// RequestIDGenerator issues time-ordered IDs for outgoing backend requests so the
// backend logs sort in send order. It falls back to a random ID when the v7 clock
// source fails.
type RequestIDGenerator struct{}

func (g *RequestIDGenerator) New() (uuid.UUID, error) {
	id, err := uuid.NewV7()
	if err == nil {
		return id, nil
	}

	id, err = uuid.NewRandom()
	if err != nil {
		return uuid.Nil, fmt.Errorf("RequestIDGenerator.New: %w", err)
	}
	return id, nil
}
