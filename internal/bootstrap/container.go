package bootstrap

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"doc-assistant-be/internal/config"
	"doc-assistant-be/internal/controller"
	"doc-assistant-be/internal/pkg/logger"
	"doc-assistant-be/internal/repository/memory"
	"doc-assistant-be/internal/repository/unitofwork"
	"doc-assistant-be/internal/service"
	"doc-assistant-be/pkg/embedding"
	"doc-assistant-be/pkg/embedding/jina"
	"doc-assistant-be/pkg/fallback"
	"doc-assistant-be/pkg/intent"
	"doc-assistant-be/pkg/llm/factory"
	"doc-assistant-be/pkg/retrieval"

	pktNats "doc-assistant-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"gorm.io/gorm"
)

// chatEventsTopic is the in-process bus topic the chat pipeline publishes to
// and the consumer drains.
const chatEventsTopic = "chat.events"

type Container struct {
	// Controllers
	ChatController     controller.IChatController
	DocumentController controller.IDocumentController

	// Background services (exposed for main.go to run)
	ConsumerService service.IConsumerService

	Logger logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	pipelineLog := initPipelineLogger(cfg.App.PipelineLogPath)

	// 2. Classification and fallbacks. Both catalogs are startup
	// dependencies: a broken config is a deploy error, not a runtime
	// condition.
	patternStore, err := intent.LoadPatternStore(cfg.Assistant.PatternConfigPath)
	if err != nil {
		log.Fatalf("[FATAL] Failed to load intent patterns: %v", err)
	}
	classifier := intent.NewClassifier(patternStore, intent.ClassifierConfig{
		PrimaryThreshold:     cfg.Assistant.PrimaryThreshold,
		SecondaryThreshold:   cfg.Assistant.SecondaryThreshold,
		MultiSignalThreshold: cfg.Assistant.MultiSignalThreshold,
	}, pipelineLog)

	fallbacks, err := fallback.Load(cfg.Assistant.FallbackConfigPath)
	if err != nil {
		log.Fatalf("[FATAL] Failed to load fallback templates: %v", err)
	}

	// 3. Event bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 4. AI providers
	var embeddingProvider embedding.EmbeddingProvider
	switch cfg.Ai.EmbeddingProvider {
	case "ollama":
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	case "jina":
		embeddingProvider = jina.NewJinaProvider(cfg.Ai.JinaKey)
		log.Printf("[INFO] Using Embedding Provider: JINA AI")
	default:
		embeddingProvider = embedding.NewGeminiProvider(cfg.Ai.GoogleGeminiKey)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	llmBaseURL := cfg.Ai.LLMBaseURL
	if llmBaseURL == "" {
		llmBaseURL = cfg.Ai.OllamaBaseURL
	}
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		llmBaseURL,
		cfg.Ai.LLMAPIKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 5. Retrieval pipeline
	retriever := retrieval.NewPipeline(
		service.NewWorkspaceDocumentFinder(uowFactory),
		service.NewChunkSearcher(uowFactory),
		service.NewProviderEmbedder(embeddingProvider),
		retrieval.Config{
			MinScore:  cfg.Assistant.RetrievalMinScore,
			PerDocCap: cfg.Assistant.RetrievalPerDocCap,
			MaxTokens: cfg.Assistant.RetrievalMaxTokens,
		},
		pipelineLog,
	)

	// 6. Ephemeral stores: Redis-backed answer memory when configured,
	// in-process otherwise.
	var answerStore memory.AnswerStore
	if cfg.App.RedisURL != "" {
		redisStore, err := memory.NewRedisAnswerStore(cfg.App.RedisURL, 1*time.Hour)
		if err != nil {
			log.Printf("[WARN] Redis answer store unavailable, using in-process cache: %v", err)
			answerStore = memory.NewCacheAnswerStore(1 * time.Hour)
		} else {
			answerStore = redisStore
		}
	} else {
		answerStore = memory.NewCacheAnswerStore(1 * time.Hour)
	}
	statsCache := memory.NewStatsCache(time.Duration(cfg.Assistant.StatsCacheTTLSeconds) * time.Second)

	// 7. NATS (best effort: the assistant runs without downstream
	// consumers)
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		natsPub = nil
	}

	// 8. Services
	publisherService := service.NewPublisherService(chatEventsTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		chatEventsTopic,
		uowFactory,
		natsPub,
		sysLogger,
	)

	chatService := service.NewChatService(
		uowFactory,
		classifier,
		fallbacks,
		retriever,
		llmProvider,
		answerStore,
		statsCache,
		publisherService,
		sysLogger,
		pipelineLog,
	)
	documentService := service.NewDocumentService(
		uowFactory,
		embeddingProvider,
		statsCache,
		sysLogger,
	)

	// 9. Controllers
	return &Container{
		ChatController:     controller.NewChatController(chatService, sysLogger),
		DocumentController: controller.NewDocumentController(documentService),

		ConsumerService: consumerService,
		Logger:          sysLogger,
	}
}

// initPipelineLogger opens the dedicated chat pipeline trace log. Falls back
// to stdout so tracing never blocks startup.
func initPipelineLogger(path string) *log.Logger {
	if path == "" {
		path = filepath.Join(".", "logs", "chat_pipeline.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Printf("Failed to create logs directory: %v", err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return log.New(os.Stdout, "[PIPELINE] ", log.LstdFlags)
	}
	return log.New(file, "", log.LstdFlags)
}
