package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Elastic       ElasticConfig
	Watsonx       WatsonxConfig
	Generation    GenerationConfig
	Dictionary    DictionaryConfig
	Query         QueryConfig
	Observability ObservabilityConfig
	Auth          AuthConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type ElasticConfig struct {
	URL                string
	Username           string
	Password           string
	InsecureSkipVerify bool
	Timeout            time.Duration
}

type WatsonxConfig struct {
	Endpoint    string
	APIKey      string
	ProjectID   string
	ModelID     string
	IAMEndpoint string
	Timeout     time.Duration
}

type GenerationConfig struct {
	DecodingMethod string
	Temperature    float64
	MaxNewTokens   int
	MinNewTokens   int
	RandomSeed     int64
}

type DictionaryConfig struct {
	Path            string
	SampleThreshold int
	PoolWidth       int
	RebuildCron     string
}

type QueryConfig struct {
	FetchSize   int
	SummaryRows int
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

type AuthConfig struct {
	Required   bool
	StaticKeys string
}

// LoadFromEnv loads a .env file when one is present, then reads
// configuration from the process environment.
func LoadFromEnv(serviceName string) (Config, error) {
	_ = godotenv.Load()
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("SEEKWELL_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid SEEKWELL_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	if err := applyString(lookup, "SEEKWELL_SERVICE_NAME", &cfg.Service.Name); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SEEKWELL_HTTP_ADDR", &cfg.HTTP.Address); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "SEEKWELL_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "SEEKWELL_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "SEEKWELL_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SEEKWELL_ELASTIC_URL", &cfg.Elastic.URL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SEEKWELL_ELASTIC_USERNAME", &cfg.Elastic.Username); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SEEKWELL_ELASTIC_PASSWORD", &cfg.Elastic.Password); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "SEEKWELL_ELASTIC_INSECURE_SKIP_VERIFY", &cfg.Elastic.InsecureSkipVerify); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "SEEKWELL_ELASTIC_TIMEOUT", &cfg.Elastic.Timeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SEEKWELL_WATSONX_ENDPOINT", &cfg.Watsonx.Endpoint); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SEEKWELL_WATSONX_API_KEY", &cfg.Watsonx.APIKey); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SEEKWELL_WATSONX_PROJECT_ID", &cfg.Watsonx.ProjectID); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SEEKWELL_WATSONX_MODEL_ID", &cfg.Watsonx.ModelID); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SEEKWELL_WATSONX_IAM_ENDPOINT", &cfg.Watsonx.IAMEndpoint); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "SEEKWELL_WATSONX_TIMEOUT", &cfg.Watsonx.Timeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SEEKWELL_GENERATION_DECODING", &cfg.Generation.DecodingMethod); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "SEEKWELL_GENERATION_TEMPERATURE", &cfg.Generation.Temperature); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "SEEKWELL_GENERATION_MAX_NEW_TOKENS", &cfg.Generation.MaxNewTokens); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "SEEKWELL_GENERATION_MIN_NEW_TOKENS", &cfg.Generation.MinNewTokens); err != nil {
		return Config{}, err
	}
	if err := applyInt64(lookup, "SEEKWELL_GENERATION_RANDOM_SEED", &cfg.Generation.RandomSeed); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SEEKWELL_DICTIONARY_PATH", &cfg.Dictionary.Path); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "SEEKWELL_DICTIONARY_SAMPLE_THRESHOLD", &cfg.Dictionary.SampleThreshold); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "SEEKWELL_DICTIONARY_POOL_WIDTH", &cfg.Dictionary.PoolWidth); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SEEKWELL_DICTIONARY_REBUILD_CRON", &cfg.Dictionary.RebuildCron); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "SEEKWELL_QUERY_FETCH_SIZE", &cfg.Query.FetchSize); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "SEEKWELL_QUERY_SUMMARY_ROWS", &cfg.Query.SummaryRows); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "SEEKWELL_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return Config{}, err
	}
	if err := applyLogLevel(lookup, "SEEKWELL_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "SEEKWELL_AUTH_REQUIRED", &cfg.Auth.Required); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SEEKWELL_AUTH_STATIC_KEYS", &cfg.Auth.StaticKeys); err != nil {
		return Config{}, err
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	if cfg.Elastic.URL == "" {
		return Config{}, fmt.Errorf("elasticsearch url is required")
	}
	if cfg.Dictionary.SampleThreshold <= 0 {
		return Config{}, fmt.Errorf("dictionary sample threshold must be positive")
	}
	if cfg.Dictionary.PoolWidth <= 0 {
		return Config{}, fmt.Errorf("dictionary pool width must be positive")
	}
	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "seekwell-api"},
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Elastic: ElasticConfig{
			URL:      "http://localhost:9200",
			Username: "elastic",
			Timeout:  30 * time.Second,
		},
		Watsonx: WatsonxConfig{
			Endpoint:    "https://us-south.ml.cloud.ibm.com",
			ModelID:     "meta-llama/llama-3-3-70b-instruct",
			IAMEndpoint: "https://iam.cloud.ibm.com",
			Timeout:     120 * time.Second,
		},
		Generation: GenerationConfig{
			DecodingMethod: "greedy",
			Temperature:    0,
			MaxNewTokens:   1000,
			MinNewTokens:   1,
			RandomSeed:     42,
		},
		Dictionary: DictionaryConfig{
			Path:            "metadata.json",
			SampleThreshold: 20,
			PoolWidth:       10,
		},
		Query: QueryConfig{
			FetchSize:   1000,
			SummaryRows: 20,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
		Auth: AuthConfig{
			Required:   false,
			StaticKeys: "",
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18080"
		cfg.Observability.LogLevel = slog.LevelWarn
		cfg.Auth.Required = false
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Auth.Required = true
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt64(lookup LookupFunc, key string, dst *int64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
