// Package openai transcribes and synthesizes speech through the OpenAI audio endpoints.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	openaigo "github.com/openai/openai-go/v3"

	llmopenai "github.com/bnema/meeting-assistant-cli/internal/adapters/llm/openai"
	"github.com/bnema/meeting-assistant-cli/internal/ports"
)

const (
	DefaultTranscriptionModel = "whisper-1"
	DefaultSpeechModel        = "tts-1"
	DefaultVoice              = "alloy"
	maxSpeechInput            = 4096
)

type Config struct {
	TranscriptionModel string
	SpeechModel        string
	Voice              string
}

type Speech struct {
	client *llmopenai.Client
	cfg    Config
}

var (
	_ ports.SpeechToText = (*Speech)(nil)
	_ ports.TextToSpeech = (*Speech)(nil)
)

func New(client *llmopenai.Client, cfg Config) *Speech {
	if strings.TrimSpace(cfg.TranscriptionModel) == "" {
		cfg.TranscriptionModel = DefaultTranscriptionModel
	}
	if strings.TrimSpace(cfg.SpeechModel) == "" {
		cfg.SpeechModel = DefaultSpeechModel
	}
	if strings.TrimSpace(cfg.Voice) == "" {
		cfg.Voice = DefaultVoice
	}

	return &Speech{client: client, cfg: cfg}
}

func (s *Speech) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if audio == nil {
		return "", errors.New("transcribe audio: no audio given")
	}
	if filename == "" {
		filename = "audio.wav"
	}
	if err := s.client.Wait(ctx); err != nil {
		return "", err
	}

	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	resp, err := s.client.API().Audio.Transcriptions.New(ctx, openaigo.AudioTranscriptionNewParams{
		File:  openaigo.File(audio, filepath.Base(filename), contentType),
		Model: s.cfg.TranscriptionModel,
	})
	if err != nil {
		return "", fmt.Errorf("transcribe audio: %w", err)
	}

	return strings.TrimSpace(resp.Text), nil
}

func (s *Speech) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("synthesize speech: empty text")
	}
	if len(text) > maxSpeechInput {
		return nil, fmt.Errorf("synthesize speech: text longer than %d characters", maxSpeechInput)
	}
	if err := s.client.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := s.client.API().Audio.Speech.New(ctx, openaigo.AudioSpeechNewParams{
		Input:          text,
		Model:          s.cfg.SpeechModel,
		Voice:          openaigo.AudioSpeechNewParamsVoice(s.cfg.Voice),
		ResponseFormat: openaigo.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read synthesized speech: %w", err)
	}

	return audio, nil
}
