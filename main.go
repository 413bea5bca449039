// An MCP server and conversational assistant for searching identifiers
// across a time-partitioned archive of gzipped log bundles in an S3 bucket.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"lokilens-mcp/internal/archive"
	"lokilens-mcp/internal/bootstrap"
	"lokilens-mcp/internal/cache"
	"lokilens-mcp/internal/chat"
	"lokilens-mcp/internal/models"
	"lokilens-mcp/internal/search"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/peterbourgon/ff/v3"
	log "github.com/sirupsen/logrus"
)

// Version information
var (
	Version   = "dev"     // Set by goreleaser
	CommitSHA = "unknown" // Set by goreleaser
	BuildTime = "unknown" // Set by goreleaser
)

func main() {
	cfg, useHTTP, err := setupConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	setupLogging(cfg)

	store, err := archive.NewS3Store(cfg)
	if err != nil {
		log.Fatalf("object store: %v", err)
	}
	svc := search.New(store, cfg.Bucket)

	results := cache.NewResultCache()
	contexts := cache.NewContextStore()

	var searcher chat.Searcher = svc
	if cfg.ToolServerURL != "" {
		// Tool use is not valid without a session; a failed handshake is
		// fatal.
		client, err := bootstrap.NewClient(context.Background(), cfg.ToolServerURL, cfg.HandshakeTimeout)
		if err != nil {
			log.Fatalf("tool server handshake: %v", err)
		}
		searcher = client
	}

	orchestrator := chat.NewOrchestrator(chat.NewOpenAIClient(cfg), searcher, results, contexts)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "lokilens-mcp",
		Version: Version,
	}, nil)
	registerAllTools(server, svc)

	if useHTTP {
		httpServer := NewHTTPServer(server, svc, orchestrator, cfg)
		if err := httpServer.Start(); err != nil {
			log.Fatalf("http server: %v", err)
		}
		return
	}

	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		log.Fatalf("mcp server: %v", err)
	}
}

// setupConfig initializes and parses the configuration
func setupConfig() (models.Config, bool, error) {
	// Best-effort, same as the original's load_dotenv.
	_ = godotenv.Load()

	fs := flag.NewFlagSet("lokilens-mcp", flag.ExitOnError)

	var cfg models.Config
	var useHTTP bool
	var handshakeSeconds int

	fs.StringVar(&cfg.Bucket, "bucket", os.Getenv("AWS_BUCKET_NAME"), "archive bucket name")
	fs.StringVar(&cfg.S3Endpoint, "s3-endpoint", envOr("S3_ENDPOINT", "s3.amazonaws.com"), "S3-compatible endpoint")
	fs.StringVar(&cfg.S3AccessKey, "s3-access-key", os.Getenv("AWS_ACCESS_KEY_ID"), "S3 access key")
	fs.StringVar(&cfg.S3SecretKey, "s3-secret-key", os.Getenv("AWS_SECRET_ACCESS_KEY"), "S3 secret key")
	fs.StringVar(&cfg.S3Region, "s3-region", envOr("AWS_REGION", "us-east-1"), "S3 region")
	fs.BoolVar(&cfg.S3UseSSL, "s3-ssl", true, "use TLS for the object store")

	fs.StringVar(&cfg.OpenAIAPIKey, "openai-key", os.Getenv("OPENAI_API_KEY"), "OpenAI-compatible API key")
	fs.StringVar(&cfg.OpenAIBaseURL, "openai-url", envOr("OPENAI_BASE_URL", "https://api.openai.com/v1"), "OpenAI-compatible base URL")
	fs.StringVar(&cfg.Model, "model", envOr("OPENAI_MODEL", "gpt-4-turbo-preview"), "chat model")

	fs.StringVar(&cfg.ToolServerURL, "tool-server", os.Getenv("MCP_SERVER_URL"), "remote tool server URL (optional)")
	fs.IntVar(&handshakeSeconds, "handshake-timeout", 5, "tool server handshake timeout in seconds")

	fs.StringVar(&cfg.Host, "host", envOr("HOST", "0.0.0.0"), "HTTP listen host")
	fs.StringVar(&cfg.Port, "port", envOr("PORT", "8000"), "HTTP listen port")
	fs.BoolVar(&useHTTP, "http", false, "serve MCP over HTTP instead of stdio")

	fs.Float64Var(&cfg.RequestRateLimit, "rate", 10, "upstream requests per second limit")
	fs.IntVar(&cfg.RequestRateBurst, "burst", 10, "upstream request burst capacity")
	fs.StringVar(&cfg.LogLevel, "log-level", envOr("LOG_LEVEL", "info"), "log level")

	var configFile string
	fs.StringVar(&configFile, "config", "", "config file path")

	err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("LOKILENS"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
	)
	if err != nil {
		return cfg, false, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg.HandshakeTimeout = time.Duration(handshakeSeconds) * time.Second

	if cfg.Bucket == "" {
		return cfg, false, errors.New("archive bucket must be provided via AWS_BUCKET_NAME env var or -bucket")
	}
	if cfg.S3AccessKey == "" || cfg.S3SecretKey == "" {
		return cfg, false, errors.New("S3 credentials must be provided via AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY env vars")
	}
	if cfg.OpenAIAPIKey == "" {
		return cfg, false, errors.New("OpenAI API key must be provided via OPENAI_API_KEY env var")
	}

	return cfg, useHTTP, nil
}

func setupLogging(cfg models.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
