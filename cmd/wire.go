package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/bnema/meeting-assistant-cli/internal/adapters/calendar/ics"
	"github.com/bnema/meeting-assistant-cli/internal/adapters/idgen"
	"github.com/bnema/meeting-assistant-cli/internal/adapters/llm/chain"
	"github.com/bnema/meeting-assistant-cli/internal/adapters/llm/heuristic"
	llmopenai "github.com/bnema/meeting-assistant-cli/internal/adapters/llm/openai"
	"github.com/bnema/meeting-assistant-cli/internal/adapters/metrics"
	sessionrender "github.com/bnema/meeting-assistant-cli/internal/adapters/render/session"
	memoryrepo "github.com/bnema/meeting-assistant-cli/internal/adapters/repo/memory"
	natsrepo "github.com/bnema/meeting-assistant-cli/internal/adapters/repo/nats"
	tomlrepo "github.com/bnema/meeting-assistant-cli/internal/adapters/repo/toml"
	chainstore "github.com/bnema/meeting-assistant-cli/internal/adapters/secrets/chain"
	filestore "github.com/bnema/meeting-assistant-cli/internal/adapters/secrets/file"
	speechopenai "github.com/bnema/meeting-assistant-cli/internal/adapters/speech/openai"
	"github.com/bnema/meeting-assistant-cli/internal/application"
	"github.com/bnema/meeting-assistant-cli/internal/config"
	"github.com/bnema/meeting-assistant-cli/internal/domain"
	"github.com/bnema/meeting-assistant-cli/internal/logging"
	"github.com/bnema/meeting-assistant-cli/internal/ports"
)

const natsStartTimeout = 10 * time.Second

var errSpeechUnavailable = errors.New("speech needs an OpenAI API key; run `ma auth set` or set MA_LLM_API_KEY")

type app struct {
	config       config.Config
	viper        *viper.Viper
	logger       *logging.Logger
	conversation *application.ConversationService
	credentials  *application.CredentialService
	// voice is nil when no OpenAI key is available.
	voice        *application.VoiceService
	calendar     *ics.Calendar
	observer     *metrics.TurnMetrics
	renderList   func([]application.SessionSummary, sessionrender.RenderOptions) (string, error)
	renderDetail func(application.SessionDetail, sessionrender.RenderOptions) (string, error)
	now          func() time.Time
	closers      []func()
}

func wireApp() (*app, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	v, cfg, err := config.Load(homeDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewLogger(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, fmt.Errorf("wire logger: %w", err)
	}

	a := &app{
		config:       cfg,
		viper:        v,
		logger:       logger,
		observer:     metrics.Default(),
		renderList:   sessionrender.RenderList,
		renderDetail: sessionrender.RenderDetail,
		now:          time.Now,
	}

	secretStore, err := wireSecretStore(cfg)
	if err != nil {
		return nil, err
	}
	a.credentials = application.NewCredentialService(secretStore)

	store, err := a.wireSessionStore(v)
	if err != nil {
		a.Close()
		return nil, err
	}

	cal, err := ics.New(ics.Config{
		Path:          cfg.Calendar.Path,
		Subscriptions: cfg.Calendar.Subscriptions,
		Location:      cfg.Calendar.Location,
		WorkStart:     cfg.Calendar.WorkStart,
		WorkEnd:       cfg.Calendar.WorkEnd,
		CacheDir:      cfg.Calendar.CacheDir,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("wire calendar: %w", err)
	}
	a.calendar = cal

	extractor, replies, client := a.wireLanguage(secretStore)
	a.conversation = application.NewConversationService(application.ConversationDeps{
		Store:        store,
		Extractor:    extractor,
		Replies:      replies,
		Availability: cal,
		Events:       cal,
		Lookup:       cal,
		IDs:          idgen.UUIDGenerator{},
		Clock:        ports.SystemClock{},
		Observer:     a.observer,
		Logger:       logger,
		Location:     cfg.Calendar.Location,
	})

	if client != nil {
		speech := speechopenai.New(client, speechopenai.Config{
			TranscriptionModel: cfg.Speech.STTModel,
			SpeechModel:        cfg.Speech.TTSModel,
			Voice:              cfg.Speech.Voice,
		})
		a.voice = application.NewVoiceService(a.conversation, speech, speech)
	}

	return a, nil
}

func wireSecretStore(cfg config.Config) (ports.SecretStore, error) {
	if cfg.Secrets.Backend == config.SecretsFile {
		return filestore.NewStore(cfg.Secrets.Dir), nil
	}

	store, err := chainstore.NewPassFirstWithFileFallback(cfg.Secrets.Dir)
	if err != nil {
		return nil, fmt.Errorf("wire secret store chain: %w", err)
	}

	return store, nil
}

func (a *app) wireSessionStore(v *viper.Viper) (ports.SessionStore, error) {
	switch a.config.Sessions.Backend {
	case config.BackendMemory:
		return memoryrepo.NewSessionRepository(), nil
	case config.BackendNATS:
		return a.wireNATSStore()
	default:
		repo, err := tomlrepo.NewSessionRepository(v)
		if err != nil {
			return nil, fmt.Errorf("wire session repository: %w", err)
		}
		return repo, nil
	}
}

// wireNATSStore connects to nats.url, or runs an embedded JetStream server when no URL is set.
func (a *app) wireNATSStore() (ports.SessionStore, error) {
	url := a.config.NATS.URL
	if url == "" {
		ns, err := server.NewServer(&server.Options{
			ServerName: "meeting-assistant",
			Host:       "127.0.0.1",
			Port:       server.RANDOM_PORT,
			JetStream:  true,
			StoreDir:   filepath.Clean(a.config.NATS.StoreDir),
			NoSigs:     true,
			NoLog:      true,
		})
		if err != nil {
			return nil, fmt.Errorf("start embedded nats server: %w", err)
		}
		go ns.Start()
		if !ns.ReadyForConnections(natsStartTimeout) {
			ns.Shutdown()
			return nil, errors.New("embedded nats server did not become ready")
		}
		a.closers = append(a.closers, func() {
			ns.Shutdown()
			ns.WaitForShutdown()
		})
		url = ns.ClientURL()
	}

	nc, err := nats.Connect(url, nats.Name("meeting-assistant"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	// Registered after the server so it runs first.
	a.closers = append(a.closers, nc.Close)

	ctx, cancel := context.WithTimeout(context.Background(), natsStartTimeout)
	defer cancel()

	repo, err := natsrepo.NewSessionRepository(ctx, nc, natsrepo.Config{Bucket: a.config.NATS.Bucket})
	if err != nil {
		return nil, fmt.Errorf("wire nats session repository: %w", err)
	}

	return repo, nil
}

// wireLanguage picks the extractor and reply generator. The OpenAI adapters are backed by the
// offline heuristics; without a key only the heuristics run.
func (a *app) wireLanguage(secrets ports.SecretStore) (ports.Extractor, ports.ReplyGenerator, *llmopenai.Client) {
	offlineExtractor := heuristic.NewExtractor()
	offlineReplies := heuristic.NewReplyGenerator(a.config.Calendar.Location)

	apiKey := a.resolveAPIKey(secrets)
	if apiKey == "" {
		if a.config.LLM.Provider == config.ProviderOpenAI {
			a.logger.Warn(context.Background(), "no OpenAI API key configured, using offline extraction")
		}
		return offlineExtractor, offlineReplies, nil
	}

	client, err := llmopenai.NewClient(llmopenai.Config{
		APIKey:     apiKey,
		BaseURL:    a.config.LLM.BaseURL,
		Model:      a.config.LLM.Model,
		RateLimit:  a.config.LLM.RateLimit,
		Burst:      a.config.LLM.Burst,
		Timeout:    a.config.LLM.Timeout,
		MaxRetries: a.config.LLM.MaxRetries,
	})
	if err != nil {
		a.logger.Warn(context.Background(), "openai client unavailable, using offline extraction", zap.Error(err))
		return offlineExtractor, offlineReplies, nil
	}
	if a.config.LLM.Provider == config.ProviderHeuristic {
		return offlineExtractor, offlineReplies, client
	}

	logger := a.logger.Named("llm")
	extractor, err := chain.NewExtractor(llmopenai.NewExtractor(client), offlineExtractor, logger)
	if err != nil {
		return offlineExtractor, offlineReplies, client
	}
	replies, err := chain.NewGenerator(llmopenai.NewGenerator(client, a.config.Calendar.Location), offlineReplies, logger)
	if err != nil {
		return offlineExtractor, offlineReplies, client
	}

	return extractor, replies, client
}

func (a *app) resolveAPIKey(secrets ports.SecretStore) string {
	if a.config.LLM.APIKey != "" {
		return a.config.LLM.APIKey
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	key, err := secrets.Get(ctx, a.config.LLM.APIKeyRef)
	if err != nil {
		if !errors.Is(err, domain.ErrSecretNotFound) {
			a.logger.Debug(ctx, "read api key", zap.Error(err))
		}
		return ""
	}

	return key
}

// Close releases connections in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	_ = a.logger.Sync()
}
