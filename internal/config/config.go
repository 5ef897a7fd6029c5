package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr          string
	GelfAddr          string
	DataDir           string
	LogPath           string
	WorkbookPath      string
	TaxonomyPath      string
	QuestionnairePath string
	SessionTTL        time.Duration
}

// Load reads configuration from the environment, with a best-effort .env
// for local runs. Empty taxonomy/questionnaire paths select the embedded
// b-Med defaults.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		HTTPAddr:          getEnv("INTAKE_ADDR", ":8080"),
		GelfAddr:          getEnv("INTAKE_GELF_ADDR", ""),
		DataDir:           getEnv("INTAKE_DATA_DIR", "data"),
		LogPath:           getEnv("INTAKE_LOG_FILE", "data/bmed_submissions.jsonl"),
		WorkbookPath:      getEnv("INTAKE_DB_FILE", "data/bmed_startups_database.xlsx"),
		TaxonomyPath:      getEnv("INTAKE_TAXONOMY_FILE", ""),
		QuestionnairePath: getEnv("INTAKE_QUESTIONS_FILE", ""),
		SessionTTL:        getEnvDuration("INTAKE_SESSION_TTL_MIN", 120),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallbackMinutes int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Minute
		}
	}
	return time.Duration(fallbackMinutes) * time.Minute
}
