package testutil

import (
	"time"

	"lokilens-mcp/internal/models"
)

// MockConfig creates a configuration for testing without real credentials.
func MockConfig() models.Config {
	return models.Config{
		Bucket:           "test-archive",
		S3Endpoint:       "s3.example.com",
		S3AccessKey:      "mock-access-key",
		S3SecretKey:      "mock-secret-key",
		S3Region:         "us-east-1",
		S3UseSSL:         true,
		OpenAIAPIKey:     "mock-api-key",
		OpenAIBaseURL:    "https://example.com/v1",
		Model:            "test-model",
		HandshakeTimeout: 5 * time.Second,
		Host:             "localhost",
		Port:             "8000",
		RequestRateLimit: 100,
		RequestRateBurst: 10,
		LogLevel:         "debug",
	}
}
