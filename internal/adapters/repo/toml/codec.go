package toml

import (
	"fmt"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bnema/meeting-assistant-cli/internal/domain"
)

// EncodeSession renders a session as a versioned TOML document.
func EncodeSession(session domain.Session) ([]byte, error) {
	file := fileSchema{Session: toSchema(session)}
	file.applyDefaults()

	data, err := toml.Marshal(file)
	if err != nil {
		return nil, fmt.Errorf("encode session file: %w", err)
	}

	return data, nil
}

// DecodeSession is the inverse of EncodeSession.
func DecodeSession(data []byte) (domain.Session, error) {
	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return domain.Session{}, fmt.Errorf("decode session file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return domain.Session{}, err
	}
	file.applyDefaults()

	return fromSchema(file.Session)
}
