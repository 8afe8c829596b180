package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	LogLevel       string // logrus level name
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	MigrateOnStart bool   // apply embedded migrations before serving
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time‑to‑live in minutes
	RefreshTTLDays int    // refresh token time‑to‑live in days
	BcryptCost     int    // bcrypt cost for password hashing

	OMDB OMDBConfig

	RabbitURL        string // AMQP broker URL; empty disables screening events
	ConsumerEnabled  bool   // run the screening event consumer in-process
	ScreeningLogPath string // file the consumer appends screening events to
}

// OMDBConfig configures the external movie metadata client.
type OMDBConfig struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	Attempts int
	Delay    time.Duration
}

// LoadDotEnv reads a .env file into the process environment when present.
// Variables already set in the environment win.
func LoadDotEnv(paths ...string) {
	if err := godotenv.Load(paths...); err != nil && !os.IsNotExist(err) {
		log.Printf("config: ignoring .env: %v", err)
	}
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		MigrateOnStart: envBool("MIGRATE_ON_START", true),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),
		OMDB:           LoadOMDBConfig(),

		RabbitURL:        envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
		ConsumerEnabled:  envBool("CONSUMER_ENABLED", false),
		ScreeningLogPath: envStr("SCREENING_LOG_PATH", "logs/screenings.log"),
	}
}

// LoadOMDBConfig reads the OMDB_* variables.  OMDB_API_KEY is required.
func LoadOMDBConfig() OMDBConfig {
	c := OMDBConfig{
		BaseURL:  envStr("OMDB_URL", "https://www.omdbapi.com/"),
		APIKey:   must("OMDB_API_KEY"),
		Timeout:  envDur("OMDB_TIMEOUT", 10*time.Second),
		Attempts: envInt("OMDB_ATTEMPTS", 3),
		Delay:    envDur("OMDB_RETRY_DELAY", 200*time.Millisecond),
	}
	if c.Attempts < 1 {
		c.Attempts = 1
	}
	return c
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
