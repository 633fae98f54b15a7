package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"hr-rag/internal/models"
)

type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	BaseURL     string  `yaml:"base_url"`
	Key         string  `yaml:"key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxRounds   int     `yaml:"max_rounds"`
}

type EmbedConfig struct {
	Provider          string  `yaml:"provider"`
	BaseURL           string  `yaml:"base_url"`
	Key               string  `yaml:"key"`
	Model             string  `yaml:"model"`
	E5                bool    `yaml:"e5"`
	Dimensions        int32   `yaml:"dimensions"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

type RAGConfig struct {
	ChunkTokens     int `yaml:"chunk_tokens"`
	ChunkOverlap    int `yaml:"chunk_overlap"`
	TopK            int `yaml:"top_k"`
	MaxContextChars int `yaml:"max_context_chars"`
}

// CorpusConfig binds a root folder to a corpus tag. Key is the ingestion source name.
type CorpusConfig struct {
	Name string `yaml:"name"`
	Key  string `yaml:"key"`
	Root string `yaml:"root"`
}

type VectorDBConfig struct {
	Backend    string `yaml:"backend"`
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
	Compress   bool   `yaml:"compress"`
	DSN        string `yaml:"dsn"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Debug      bool   `yaml:"debug"`
}

type SessionConfig struct {
	Backend   string        `yaml:"backend"`
	RedisAddr string        `yaml:"redis_addr"`
	RedisDB   int           `yaml:"redis_db"`
	TTL       time.Duration `yaml:"ttl"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	EmbedLLM EmbedConfig    `yaml:"embed_llm"`
	RAG      RAGConfig      `yaml:"rag"`
	Corpora  []CorpusConfig `yaml:"corpora"`
	VectorDB VectorDBConfig `yaml:"vector_db"`
	Session  SessionConfig  `yaml:"session"`
	Server   ServerConfig   `yaml:"server"`
	LogLevel string         `yaml:"log_level"`
}

const (
	defaultChunkTokens     = 800
	defaultChunkOverlap    = 120
	defaultTopK            = 5
	defaultMaxContextChars = 12000
	defaultMaxRounds       = 4
	defaultTemperature     = 0.2
	defaultCollection      = "hr_documents"
	defaultVectorPath      = "./vectorstore/chromem"
	defaultQdrantPort      = 6334
)

// Default returns the configuration used when no file is present
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "openai/gpt-oss-120b"
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = defaultTemperature
	}
	if c.LLM.MaxRounds <= 0 {
		c.LLM.MaxRounds = defaultMaxRounds
	}
	if c.EmbedLLM.Provider == "" {
		c.EmbedLLM.Provider = "ollama"
	}
	if c.EmbedLLM.Model == "" {
		c.EmbedLLM.Model = "intfloat/multilingual-e5-base"
	}
	if c.RAG.ChunkTokens <= 0 {
		c.RAG.ChunkTokens = defaultChunkTokens
	}
	if c.RAG.ChunkOverlap <= 0 {
		c.RAG.ChunkOverlap = min(defaultChunkOverlap, c.RAG.ChunkTokens/4)
	}
	if c.RAG.TopK <= 0 {
		c.RAG.TopK = defaultTopK
	}
	if c.RAG.MaxContextChars <= 0 {
		c.RAG.MaxContextChars = defaultMaxContextChars
	}
	if len(c.Corpora) == 0 {
		c.Corpora = []CorpusConfig{
			{Name: string(models.CorpusHR), Key: "policies", Root: "data/raw/hr_policies"},
			{Name: string(models.CorpusJisr), Key: "jisr", Root: "data/raw/jisr_guides"},
		}
	}
	if c.VectorDB.Backend == "" {
		c.VectorDB.Backend = "chromem"
	}
	if c.VectorDB.Path == "" {
		c.VectorDB.Path = defaultVectorPath
	}
	if c.VectorDB.Collection == "" {
		c.VectorDB.Collection = defaultCollection
	}
	if c.VectorDB.Port == 0 {
		c.VectorDB.Port = defaultQdrantPort
	}
	if c.Session.Backend == "" {
		c.Session.Backend = "memory"
	}
	if c.Session.RedisAddr == "" {
		c.Session.RedisAddr = "localhost:6379"
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.LogLevel == "" {
		c.LogLevel = "debug"
	}
}

// secrets and addresses can come from the environment (.env is loaded by main)
func (c *Config) applyEnv() {
	setString(&c.LLM.Key, "LLM_API_KEY")
	setString(&c.EmbedLLM.Key, "EMBED_API_KEY")
	setString(&c.Session.RedisAddr, "REDIS_ADDR")
	setString(&c.VectorDB.DSN, "DATABASE_URL")
	setString(&c.VectorDB.Host, "QDRANT_HOST")
	setString(&c.Server.Host, "HOST")
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func (c *Config) Validate() error {
	if c.RAG.ChunkTokens <= 0 {
		return fmt.Errorf("rag.chunk_tokens must be positive, got %d", c.RAG.ChunkTokens)
	}
	if c.RAG.ChunkOverlap >= c.RAG.ChunkTokens {
		return fmt.Errorf("rag.chunk_overlap (%d) must be smaller than rag.chunk_tokens (%d)", c.RAG.ChunkOverlap, c.RAG.ChunkTokens)
	}
	seen := make(map[string]bool)
	for _, cc := range c.Corpora {
		corpus := models.ParseCorpus(cc.Name)
		if corpus == models.CorpusUnknown {
			return fmt.Errorf("corpus %q is not one of hr, jisr", cc.Name)
		}
		if seen[cc.Name] {
			return fmt.Errorf("corpus %q configured twice", cc.Name)
		}
		seen[cc.Name] = true
		if cc.Root == "" {
			return fmt.Errorf("corpus %q has no root folder", cc.Name)
		}
	}
	return nil
}

// CorpusFor returns the corpus configuration bound to an ingestion source key
func (c *Config) CorpusFor(key string) (CorpusConfig, bool) {
	for _, cc := range c.Corpora {
		if cc.Key == key || cc.Name == key {
			return cc, true
		}
	}
	return CorpusConfig{}, false
}
