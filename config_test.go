package datanexus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigRequiresAPIKey(t *testing.T) {
	t.Setenv("DATANEXUS_API_KEY", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATANEXUS_API_KEY")
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATANEXUS_API_KEY", "key-123")
	t.Setenv("DATANEXUS_BASE_URL", "")
	t.Setenv("SOLANA_BUYER_PRIVATE_KEY", "")
	t.Setenv("SOLANA_PRIVATE_KEY", "")
	t.Setenv("SOLANA_RPC_URL", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "key-123", cfg.APIKey)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Empty(t, cfg.SolanaPrivateKey)
	assert.Empty(t, cfg.SolanaRPCURL)
}

func TestLoadConfigTrimsTrailingSlash(t *testing.T) {
	t.Setenv("DATANEXUS_API_KEY", "key-123")
	t.Setenv("DATANEXUS_BASE_URL", "https://api.example.com/")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.BaseURL)
}

func TestLoadConfigBuyerKeyWins(t *testing.T) {
	t.Setenv("DATANEXUS_API_KEY", "key-123")
	t.Setenv("SOLANA_BUYER_PRIVATE_KEY", "buyer-key")
	t.Setenv("SOLANA_PRIVATE_KEY", "generic-key")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "buyer-key", cfg.SolanaPrivateKey)
}

func TestLoadConfigFallsBackToGenericKey(t *testing.T) {
	t.Setenv("DATANEXUS_API_KEY", "key-123")
	t.Setenv("SOLANA_BUYER_PRIVATE_KEY", "")
	t.Setenv("SOLANA_PRIVATE_KEY", "generic-key")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "generic-key", cfg.SolanaPrivateKey)
}
