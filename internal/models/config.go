package models

import "time"

// Config holds the server configuration parameters
type Config struct {
	// Archive settings
	Bucket      string // S3 bucket holding the compressed log archive
	S3Endpoint  string // S3-compatible endpoint host[:port]
	S3AccessKey string // Access key for the object store
	S3SecretKey string // Secret key for the object store
	S3Region    string // Bucket region
	S3UseSSL    bool   // Whether to use TLS when talking to the store

	// Language model settings
	OpenAIAPIKey  string // API key for the OpenAI-compatible endpoint
	OpenAIBaseURL string // Base URL of the OpenAI-compatible endpoint
	Model         string // Model used for chat and synthesis

	// Remote tool server settings. When ToolServerURL is set the chat
	// orchestrator searches through the remote REST API instead of the
	// in-process engine, after an SSE session handshake.
	ToolServerURL    string
	HandshakeTimeout time.Duration

	// HTTP transport settings
	Host string
	Port string

	// Rate limiting configuration
	RequestRateLimit float64 // Maximum upstream requests per second
	RequestRateBurst int     // Maximum burst capacity for requests

	LogLevel string // logrus level name
}
