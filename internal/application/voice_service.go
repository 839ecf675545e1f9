package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bnema/meeting-assistant-cli/internal/ports"
)

var ErrEmptyTranscript = errors.New("no speech recognized")

type TurnHandler interface {
	HandleTurn(ctx context.Context, cmd HandleTurnCommand) (TurnResult, error)
}

// VoiceService puts speech on both ends of a conversation turn.
type VoiceService struct {
	conversation TurnHandler
	stt          ports.SpeechToText
	tts          ports.TextToSpeech
}

func NewVoiceService(conversation TurnHandler, stt ports.SpeechToText, tts ports.TextToSpeech) *VoiceService {
	return &VoiceService{conversation: conversation, stt: stt, tts: tts}
}

func (s *VoiceService) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	text, err := s.stt.Transcribe(ctx, audio, filename)
	if err != nil {
		return "", fmt.Errorf("transcribe audio: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyTranscript
	}

	return text, nil
}

func (s *VoiceService) Speak(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("nothing to speak")
	}

	audio, err := s.tts.Synthesize(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}

	return audio, nil
}

// Turn transcribes the audio, runs it as a conversation turn and optionally speaks the reply.
// A synthesis failure does not undo the turn; the result is returned with the error.
func (s *VoiceService) Turn(ctx context.Context, cmd VoiceTurnCommand) (VoiceTurnResult, error) {
	transcript, err := s.Transcribe(ctx, cmd.Audio, cmd.Filename)
	if err != nil {
		return VoiceTurnResult{}, err
	}

	turn, err := s.conversation.HandleTurn(ctx, HandleTurnCommand{Prompt: transcript, SessionID: cmd.SessionID})
	if err != nil {
		return VoiceTurnResult{Transcript: transcript}, err
	}

	result := VoiceTurnResult{Transcript: transcript, Turn: turn}
	if !cmd.Speak {
		return result, nil
	}

	result.Audio, err = s.Speak(ctx, turn.Reply)
	if err != nil {
		return result, err
	}

	return result, nil
}
