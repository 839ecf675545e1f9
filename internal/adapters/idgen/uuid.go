// Package idgen issues session identifiers.
package idgen

import (
	"github.com/google/uuid"

	"github.com/bnema/meeting-assistant-cli/internal/ports"
)

type UUIDGenerator struct{}

var _ ports.IDGenerator = UUIDGenerator{}

// NewSessionID returns a random version 4 UUID, which is always a valid session id.
func (UUIDGenerator) NewSessionID() string {
	return uuid.NewString()
}
