package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress    string
	GeminiAPIKey   string
	GeminiModelID  string
	CredentialFile string
	SheetsURL      string
}

// Load reads environment variables and returns Config with sane defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Error loading .env file")
	}

	addr := os.Getenv("HTTP_ADDRESS")
	if addr == "" {
		addr = ":8080"
	}

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Println("Warning: GEMINI_API_KEY not set - starting in demo mode unless a key was saved earlier")
	}

	model := os.Getenv("GEMINI_MODEL_ID")

	credFile := os.Getenv("CREDENTIAL_FILE")
	if credFile == "" {
		credFile = ".gemini_api_key"
	}

	sheetsURL := os.Getenv("SHEETS_URL")
	if sheetsURL == "" {
		log.Println("Warning: SHEETS_URL not set - export needs a URL per request")
	}

	log.Printf("config: HTTP_ADDRESS=%s", addr)
	return Config{
		HTTPAddress:    addr,
		GeminiAPIKey:   apiKey,
		GeminiModelID:  model,
		CredentialFile: credFile,
		SheetsURL:      sheetsURL,
	}
}
