package datanexus

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Default API endpoint when DATANEXUS_BASE_URL is unset.
const DefaultBaseURL = "http://localhost:3000"

// Config is the process-level configuration for the client. The signing
// key is optional: without it the client still works for free endpoints
// and reports payment-required outcomes instead of paying.
type Config struct {
	APIKey           string
	BaseURL          string
	SolanaPrivateKey string
	SolanaRPCURL     string
}

// LoadConfig reads configuration from the environment, first loading a
// .env file if one exists (missing file is not an error).
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	apiKey := os.Getenv("DATANEXUS_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("DATANEXUS_API_KEY is not set")
	}

	baseURL := os.Getenv("DATANEXUS_BASE_URL")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	// Buyer key wins when both are set; demos fund the buyer wallet.
	privateKey := os.Getenv("SOLANA_BUYER_PRIVATE_KEY")
	if privateKey == "" {
		privateKey = os.Getenv("SOLANA_PRIVATE_KEY")
	}

	return &Config{
		APIKey:           apiKey,
		BaseURL:          strings.TrimRight(baseURL, "/"),
		SolanaPrivateKey: privateKey,
		SolanaRPCURL:     os.Getenv("SOLANA_RPC_URL"),
	}, nil
}
