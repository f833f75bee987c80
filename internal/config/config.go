package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	JWTSecret              string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	ProgressCacheTTL       time.Duration
	OpenAIAPIKey           string
	TranscribeModel        string
	ScoreModel             string
	OverallModel           string
	MockTest               MockTestConfig
}

// MockTestConfig carries the scoring thresholds used by the mock test flow.
type MockTestConfig struct {
	TotalMarks          float64
	PassMarks           float64
	DialogueMarks       float64
	DialoguePassMarks   float64
	FeedbackNotesLimit  int
	DefaultDurationSecs int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("NAATI")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "NAATI Speaking API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cloudinary.folder", "naati/mock-tests")
	v.SetDefault("progress.cache_ttl", "2m")
	v.SetDefault("openai.transcribe_model", "gpt-4o-transcribe")
	v.SetDefault("openai.score_model", "gpt-4o-mini")
	v.SetDefault("openai.overall_model", "gpt-4o-mini")
	v.SetDefault("mocktest.total_marks", 90.0)
	v.SetDefault("mocktest.pass_marks", 63.0)
	v.SetDefault("mocktest.dialogue_marks", 45.0)
	v.SetDefault("mocktest.dialogue_pass_marks", 31.0)
	v.SetDefault("mocktest.feedback_notes_limit", 12000)
	v.SetDefault("mocktest.default_duration_secs", 1200)

	ttlString := v.GetString("progress.cache_ttl")
	if ttlString == "" {
		ttlString = "2m"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid progress cache ttl: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		ProgressCacheTTL:       ttl,
		OpenAIAPIKey:           v.GetString("openai_api_key"),
		TranscribeModel:        v.GetString("openai.transcribe_model"),
		ScoreModel:             v.GetString("openai.score_model"),
		OverallModel:           v.GetString("openai.overall_model"),
		MockTest: MockTestConfig{
			TotalMarks:          v.GetFloat64("mocktest.total_marks"),
			PassMarks:           v.GetFloat64("mocktest.pass_marks"),
			DialogueMarks:       v.GetFloat64("mocktest.dialogue_marks"),
			DialoguePassMarks:   v.GetFloat64("mocktest.dialogue_pass_marks"),
			FeedbackNotesLimit:  v.GetInt("mocktest.feedback_notes_limit"),
			DefaultDurationSecs: v.GetInt("mocktest.default_duration_secs"),
		},
	}

	if cfg.MockTest.TotalMarks <= 0 {
		cfg.MockTest.TotalMarks = 90
	}

	if cfg.MockTest.DialogueMarks <= 0 {
		cfg.MockTest.DialogueMarks = cfg.MockTest.TotalMarks / 2
	}

	if cfg.MockTest.FeedbackNotesLimit <= 0 {
		cfg.MockTest.FeedbackNotesLimit = 12000
	}

	return cfg, nil
}
