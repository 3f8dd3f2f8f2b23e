package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

const (
	defaultModel   = "gemini-2.0-flash"
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
)

// Config holds everything the client needs to reach its external
// collaborators: the Identity Toolkit key for auth, the GCP project for
// Firestore, and the model endpoint for inference.
type Config struct {
	FirebaseAPIKey string
	ProjectID      string
	ModelAPIKey    string
	Model          string
	ModelBaseURL   string
}

// NewConfig validates the raw values and applies defaults.
func NewConfig(firebaseAPIKey, projectID, modelAPIKey, model, modelBaseURL string) (*Config, error) {
	if firebaseAPIKey == "" {
		return nil, fmt.Errorf("firebase API key cannot be empty")
	}
	if projectID == "" {
		return nil, fmt.Errorf("project ID cannot be empty")
	}
	if modelAPIKey == "" {
		return nil, fmt.Errorf("model API key cannot be empty")
	}
	if model == "" {
		model = defaultModel
	}
	if modelBaseURL == "" {
		modelBaseURL = defaultBaseURL
	}

	return &Config{
		FirebaseAPIKey: firebaseAPIKey,
		ProjectID:      projectID,
		ModelAPIKey:    modelAPIKey,
		Model:          model,
		ModelBaseURL:   modelBaseURL,
	}, nil
}

// FromEnv loads a .env file when present and builds the config from
// the environment.
func FromEnv() (*Config, error) {
	_ = godotenv.Load()

	return NewConfig(
		os.Getenv("FIREBASE_API_KEY"),
		os.Getenv("GOOGLE_CLOUD_PROJECT"),
		os.Getenv("GEMINI_API_KEY"),
		os.Getenv("GEMINI_MODEL"),
		os.Getenv("GEMINI_BASE_URL"),
	)
}
