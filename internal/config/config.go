package config

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Options struct {
	runAddr       string
	logLevel      string
	dataBaseDSN   string
	migrationsDir string
	dataFile      string

	geminiAPIKey  string
	geminiModel   string
	geminiBaseURL string

	recipeAPIURL   string
	recipeAppID    string
	recipeCacheTTL time.Duration

	redisAddr     string
	redisPassword string
	redisDB       int

	s3Endpoint  string
	s3Region    string
	s3Bucket    string
	s3AccessKey string
	s3SecretKey string

	apiMaxRetries uint64
	alertInterval time.Duration
}

func NewOptions() *Options {
	return new(Options)
}

// ParseFlags handles command line arguments
// and stores their values in the corresponding variables.
func (o *Options) ParseFlags() {
	loadEnvFile()
	o.register(flag.CommandLine)
	flag.Parse()
}

// register binds every option to fs, taking defaults from the environment.
func (o *Options) register(fs *flag.FlagSet) {
	fs.StringVar(&o.runAddr, "a", getEnvOrDefault("RUN_ADDRESS", ":8080"), "address and port to run server")
	fs.StringVar(&o.logLevel, "l", getEnvOrDefault("LOG_LEVEL", "info"), "log level")
	fs.StringVar(&o.dataBaseDSN, "d", getEnvOrDefault("DATABASE_URI", ""), "database connection string, empty keeps data in the JSON file")
	fs.StringVar(&o.migrationsDir, "m", getEnvOrDefault("MIGRATIONS_DIR", "migrations"), "directory with database migrations")
	fs.StringVar(&o.dataFile, "f", getEnvOrDefault("DATA_FILE", "fridge.json"), "JSON data file used when no database is configured")

	fs.StringVar(&o.geminiAPIKey, "gemini-key", getEnvOrDefault("GEMINI_API_KEY", ""), "generative AI api key")
	fs.StringVar(&o.geminiModel, "gemini-model", getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"), "generative AI model")
	fs.StringVar(&o.geminiBaseURL, "gemini-url", getEnvOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"), "generative AI base url")

	fs.StringVar(&o.recipeAPIURL, "recipe-url", getEnvOrDefault("RECIPE_API_URL", "https://app.rakuten.co.jp/services/api/Recipe/CategoryRanking/20170426"), "recipe search endpoint")
	fs.StringVar(&o.recipeAppID, "recipe-app-id", getEnvOrDefault("RECIPE_APP_ID", ""), "recipe search application id")
	fs.DurationVar(&o.recipeCacheTTL, "recipe-cache-ttl", getDurationOrDefault("RECIPE_CACHE_TTL", time.Hour), "how long recipe search results are cached")

	fs.StringVar(&o.redisAddr, "redis", getEnvOrDefault("REDIS_ADDR", ""), "redis address for the recipe cache, empty uses memory")
	fs.StringVar(&o.redisPassword, "redis-password", getEnvOrDefault("REDIS_PASSWORD", ""), "redis password")
	fs.IntVar(&o.redisDB, "redis-db", getIntOrDefault("REDIS_DB", 0), "redis database")

	fs.StringVar(&o.s3Endpoint, "s3-endpoint", getEnvOrDefault("S3_ENDPOINT", ""), "S3 compatible endpoint for receipt images")
	fs.StringVar(&o.s3Region, "s3-region", getEnvOrDefault("S3_REGION", "auto"), "S3 region")
	fs.StringVar(&o.s3Bucket, "s3-bucket", getEnvOrDefault("S3_BUCKET", ""), "S3 bucket, empty disables receipt archiving")
	fs.StringVar(&o.s3AccessKey, "s3-access-key", getEnvOrDefault("S3_ACCESS_KEY", ""), "S3 access key")
	fs.StringVar(&o.s3SecretKey, "s3-secret-key", getEnvOrDefault("S3_SECRET_KEY", ""), "S3 secret key")

	fs.Uint64Var(&o.apiMaxRetries, "retries", uint64(getIntOrDefault("API_MAX_RETRIES", 3)), "retries for rate limited vendor api calls")
	fs.DurationVar(&o.alertInterval, "alert-interval", getDurationOrDefault("ALERT_INTERVAL", time.Hour), "expiry alert scan interval, 0 disables")
}

func (o *Options) RunAddr() string {
	return o.runAddr
}

func (o *Options) LogLevel() string {
	return o.logLevel
}

func (o *Options) DataBaseDSN() string {
	return o.dataBaseDSN
}

func (o *Options) MigrationsDir() string {
	return o.migrationsDir
}

func (o *Options) DataFile() string {
	return o.dataFile
}

func (o *Options) GeminiAPIKey() string {
	return o.geminiAPIKey
}

func (o *Options) GeminiModel() string {
	return o.geminiModel
}

func (o *Options) GeminiBaseURL() string {
	return o.geminiBaseURL
}

func (o *Options) RecipeAPIURL() string {
	return o.recipeAPIURL
}

func (o *Options) RecipeAppID() string {
	return o.recipeAppID
}

func (o *Options) RecipeCacheTTL() time.Duration {
	return o.recipeCacheTTL
}

func (o *Options) RedisAddr() string {
	return o.redisAddr
}

func (o *Options) RedisPassword() string {
	return o.redisPassword
}

func (o *Options) RedisDB() int {
	return o.redisDB
}

func (o *Options) S3Endpoint() string {
	return o.s3Endpoint
}

func (o *Options) S3Region() string {
	return o.s3Region
}

func (o *Options) S3Bucket() string {
	return o.s3Bucket
}

func (o *Options) S3AccessKey() string {
	return o.s3AccessKey
}

func (o *Options) S3SecretKey() string {
	return o.s3SecretKey
}

func (o *Options) APIMaxRetries() uint64 {
	return o.apiMaxRetries
}

func (o *Options) AlertInterval() time.Duration {
	return o.alertInterval
}

// getEnvOrDefault reads an environment variable or returns a default value if the variable is not set or is empty.
func getEnvOrDefault(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnvOrDefault(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnvOrDefault(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

// loadEnvFile loads environment variables from a .env file in the working
// directory or, when started from cmd/fridgesnap, the repository root.
func loadEnvFile() {
	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	for _, envPath := range []string{
		filepath.Join(cwd, ".env"),
		filepath.Join(cwd, "..", "..", ".env"),
	} {
		if err := godotenv.Load(envPath); err == nil {
			log.Printf(".env file loaded from %s", envPath)
			return
		}
	}
	log.Printf("No .env file found, proceeding without it")
}
