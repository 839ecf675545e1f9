package application

import (
	"io"

	"github.com/bnema/meeting-assistant-cli/internal/domain"
)

// HandleTurnCommand is one user utterance. An empty SessionID starts a new session under a
// generated id.
type HandleTurnCommand struct {
	Prompt    string
	SessionID domain.SessionID
}

type VoiceTurnCommand struct {
	Audio     io.Reader
	Filename  string
	SessionID domain.SessionID
	// Speak asks for the reply to be synthesized as well.
	Speak bool
}

type SetSecretCommand struct {
	Ref   string
	Value string
}
