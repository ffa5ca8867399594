package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config armazena as configurações da aplicação
type Config struct {
	Port     string
	GinMode  string
	TokenAPI string
	LogLevel string
	LogJSON  bool

	// Caminho opcional do arquivo de regras de estimativa (JSON)
	RulesPath string

	// API de geração (compatível com chat/completions)
	LLMBaseURL     string
	LLMAPIKey      string
	LLMModel       string
	LLMTemperature float64

	// Ensemble
	EnsembleIterations int
	MaxParallel        int
	AttemptTimeout     time.Duration

	// Retenção de resultados em memória
	ResultTTL time.Duration

	// PostgreSQL (opcional; histórico desabilitado quando DBHost vazio)
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
}

// ErrMissingToken indica que o token da API não foi configurado
var ErrMissingToken = errors.New("TOKEN_API não configurado")

// Load carrega as configurações do ambiente
func Load() (*Config, error) {
	// Tenta carregar .env de múltiplos locais
	_ = godotenv.Load()
	_ = godotenv.Load("../.env")

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		GinMode:  getEnv("GIN_MODE", "debug"),
		TokenAPI: os.Getenv("TOKEN_API"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogJSON:  getEnvBool("LOG_JSON", false),

		RulesPath: os.Getenv("RULES_PATH"),

		LLMBaseURL:     os.Getenv("LLM_API_BASE"),
		LLMAPIKey:      os.Getenv("LLM_API_KEY"),
		LLMModel:       getEnv("LLM_MODEL", "gpt-4"),
		LLMTemperature: getEnvFloat("LLM_TEMPERATURE", 0.7),

		EnsembleIterations: getEnvInt("ENSEMBLE_ITERATIONS", 0),
		MaxParallel:        getEnvInt("MAX_PARALLEL_GENERATIONS", 3),
		AttemptTimeout:     time.Duration(getEnvInt("ATTEMPT_TIMEOUT_SECONDS", 180)) * time.Second,

		ResultTTL: time.Duration(getEnvInt("RESULT_TTL_MINUTES", 60)) * time.Minute,

		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// Validações obrigatórias
	if cfg.TokenAPI == "" {
		return nil, ErrMissingToken
	}

	return cfg, nil
}

// GeneratorEnabled indica se o cliente de geração foi configurado
func (c *Config) GeneratorEnabled() bool {
	return c.LLMBaseURL != "" && c.LLMAPIKey != ""
}

// HistoryEnabled indica se o histórico em PostgreSQL foi configurado
func (c *Config) HistoryEnabled() bool {
	return c.DBHost != "" && c.DBName != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
