package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"hr-rag/internal/agent"
	"hr-rag/internal/chromemdb"
	"hr-rag/internal/config"
	"hr-rag/internal/db"
	"hr-rag/internal/embedding"
	"hr-rag/internal/helper"
	"hr-rag/internal/index"
	"hr-rag/internal/llmservice"
	"hr-rag/internal/parser"
	"hr-rag/internal/qdrantdb"
	"hr-rag/internal/rag"
	"hr-rag/internal/retriever"
	"hr-rag/internal/session"
	"hr-rag/internal/tools"
)

const defaultConfigPath = "./configs/config.yaml"

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "hr-rag",
	Short: "Arabic HR and Jisr question answering over indexed documents",
	Long: `hr-rag ingests HR policy documents and Jisr user guides into a vector index
and answers Arabic questions from them with cited sources.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("loading .env: %w", err)
		}
		var err error
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		setupLogging(cfg.LogLevel, os.Stdout)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to the YAML config file")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func setupLogging(level string, out io.Writer) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).With().Caller().Logger()
}

// app holds the services built from the config for one command run
type app struct {
	store     index.VectorStore
	indexer   *index.Indexer
	retriever *retriever.Retriever
	tools     *tools.Set
	rag       *rag.RAG
	closers   []func() error
}

// newApp wires every service. A missing vector store is fatal; missing chat
// credentials only switch chat to the fallback mode.
func newApp(ctx context.Context, withAgent bool) (*app, error) {
	a := &app{}

	embedder, err := embedding.NewEmbedder(ctx, &cfg.EmbedLLM)
	if err != nil {
		return nil, fmt.Errorf("initializing embedder: %w", err)
	}

	a.store, err = openStore(ctx, &cfg.VectorDB)
	if err != nil {
		return nil, fmt.Errorf("initializing vector store: %w", err)
	}
	a.closers = append(a.closers, a.store.Close)
	log.Info().Str("backend", a.store.Name()).Str("collection", a.store.Collection()).Msg("Vector store initialized")

	a.indexer = index.New(a.store, embedder)
	a.retriever = retriever.New(a.indexer)
	a.tools = tools.NewSet(a.retriever, cfg.RAG.TopK, cfg.RAG.MaxContextChars)

	sessions, err := openSessions(ctx, &cfg.Session)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("initializing session store: %w", err)
	}
	if c, ok := sessions.(io.Closer); ok {
		a.closers = append(a.closers, c.Close)
	}

	var answerer rag.Answerer
	if withAgent {
		model, err := llmservice.NewModel(&cfg.LLM)
		if err != nil {
			log.Warn().Err(err).Msg("hr_agent init failed, running in fallback mode")
		} else {
			answerer = agent.New(model, a.tools, cfg.LLM.MaxRounds, cfg.LLM.Temperature)
			log.Info().Str("model", cfg.LLM.Model).Msg("hr_agent initialized")
		}
	}

	a.rag = rag.NewRAG(cfg, a.indexer, a.retriever, answerer, sessions, parser.LoadDocuments)
	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("closing")
		}
	}
}

func openStore(ctx context.Context, vcfg *config.VectorDBConfig) (index.VectorStore, error) {
	switch vcfg.Backend {
	case "chromem":
		if vcfg.Path != "" {
			if err := helper.EnsureDir(vcfg.Path); err != nil {
				return nil, err
			}
		}
		return chromemdb.NewVectorDBManager(vcfg.Path, vcfg.Collection, vcfg.Compress)
	case "pgvector":
		return db.NewStore(ctx, vcfg.DSN, vcfg.Collection, vcfg.Debug)
	case "qdrant":
		host := vcfg.Host
		if host == "" {
			host = "localhost"
		}
		return qdrantdb.NewStore(host, vcfg.Port, vcfg.Collection)
	default:
		return nil, fmt.Errorf("unsupported vector_db.backend %q", vcfg.Backend)
	}
}

func openSessions(ctx context.Context, scfg *config.SessionConfig) (session.Store, error) {
	switch scfg.Backend {
	case "memory":
		return session.NewMemoryStore(), nil
	case "redis":
		return session.NewRedisStore(ctx, scfg.RedisAddr, scfg.RedisDB, scfg.TTL)
	default:
		return nil, fmt.Errorf("unsupported session.backend %q", scfg.Backend)
	}
}
