package ports

import "context"

// OpenAIKeyRef is the secret reference the OpenAI API key is stored under unless configured otherwise.
const OpenAIKeyRef = "meeting-assistant://openai/api_key"

type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}
