package services

import (
	"log/slog"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	AI          AIConfig
	VectorStore VectorStoreConfig
	Pipeline    PipelineConfig
	JWT         JWTConfig
	WebSocket   WebSocketConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	URL          string
	Seed         bool
	SeedFile     string
	LogLevel     string
	MaxIdleConns int
	MaxOpenConns int
}

type AIConfig struct {
	GeminiAPIKey string
	OllamaURL    string
	ChatProvider string
	ChatModel    string
}

type VectorStoreConfig struct {
	EmbedModel string
	TopK       int
}

type PipelineConfig struct {
	Workers int
}

type JWTConfig struct {
	Secret string
}

type WebSocketConfig struct {
	AllowedOrigins string
}

// LoadConfig loads configuration from environment variables and config files
func LoadConfig() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("websocket.allowed_origins", "")
	viper.SetDefault("gemini.api_key", "")
	viper.SetDefault("ollama.url", "http://localhost:11434")
	viper.SetDefault("chat.provider", "gemini")
	viper.SetDefault("chat.model", "gemini-2.0-flash")
	viper.SetDefault("vectorstore.embed_model", "nomic-embed-text")
	viper.SetDefault("vectorstore.top_k", "5")
	viper.SetDefault("pipeline.workers", "2")
	viper.SetDefault("jwt.secret", "")
	viper.SetDefault("database.url", "")
	viper.SetDefault("database.seed", "true")
	viper.SetDefault("database.seed_file", "seed/defaults.yaml")
	viper.SetDefault("database.log_level", "silent")
	viper.SetDefault("database.max_idle_conns", "10")
	viper.SetDefault("database.max_open_conns", "100")

	// Map environment variables to config keys
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("websocket.allowed_origins", "WEBSOCKET_ALLOWED_ORIGINS")
	viper.BindEnv("gemini.api_key", "GEMINI_API_KEY")
	viper.BindEnv("ollama.url", "OLLAMA_URL")
	viper.BindEnv("chat.provider", "CHAT_PROVIDER")
	viper.BindEnv("chat.model", "CHAT_MODEL")
	viper.BindEnv("vectorstore.embed_model", "VECTORSTORE_EMBED_MODEL")
	viper.BindEnv("vectorstore.top_k", "VECTORSTORE_TOP_K")
	viper.BindEnv("pipeline.workers", "PIPELINE_WORKERS")
	viper.BindEnv("jwt.secret", "JWT_SECRET")
	viper.BindEnv("database.url", "DATABASE_URL")
	viper.BindEnv("database.seed", "DATABASE_SEED")
	viper.BindEnv("database.seed_file", "DATABASE_SEED_FILE")
	viper.BindEnv("database.log_level", "DATABASE_LOG_LEVEL")
	viper.BindEnv("database.max_idle_conns", "DATABASE_MAX_IDLE_CONNS")
	viper.BindEnv("database.max_open_conns", "DATABASE_MAX_OPEN_CONNS")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Warn("Config file not found, using defaults and environment variables")
		} else {
			slog.Error("Error reading config file", "error", err)
		}
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
		},
		Database: DatabaseConfig{
			URL:          viper.GetString("database.url"),
			Seed:         viper.GetBool("database.seed"),
			SeedFile:     viper.GetString("database.seed_file"),
			LogLevel:     viper.GetString("database.log_level"),
			MaxIdleConns: viper.GetInt("database.max_idle_conns"),
			MaxOpenConns: viper.GetInt("database.max_open_conns"),
		},
		AI: AIConfig{
			GeminiAPIKey: viper.GetString("gemini.api_key"),
			OllamaURL:    viper.GetString("ollama.url"),
			ChatProvider: viper.GetString("chat.provider"),
			ChatModel:    viper.GetString("chat.model"),
		},
		VectorStore: VectorStoreConfig{
			EmbedModel: viper.GetString("vectorstore.embed_model"),
			TopK:       viper.GetInt("vectorstore.top_k"),
		},
		Pipeline: PipelineConfig{
			Workers: viper.GetInt("pipeline.workers"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("jwt.secret"),
		},
		WebSocket: WebSocketConfig{
			AllowedOrigins: viper.GetString("websocket.allowed_origins"),
		},
	}
}
