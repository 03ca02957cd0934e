// Package main is the entry point for the AgoraFlow server.
//
// Its job is deliberately small: read configuration from the environment,
// build a logger, and hand both to internal/server. Every behaviour worth
// testing lives in the imported packages, not here.
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/agoraflow/agoraflow/internal/model"
	"github.com/agoraflow/agoraflow/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// === CONFIGURATION ===
	// Everything comes from environment variables with working defaults, so
	// a bare `go run ./cmd/server` starts a functional instance.
	//
	//	PORT                  listen port (default 8080)
	//	DB_PATH               SQLite file (default data/agoraflow.db)
	//	VOTE_UP_WEIGHT        reputation per upvote received (default 10)
	//	VOTE_DOWN_WEIGHT      reputation lost per downvote (default 2)
	//	REPORT_THRESHOLD      distinct reporters before suspension (default 3)
	//	CAPTCHA_TTL_SECONDS   signup challenge lifetime (default 300)
	//	ALLOWED_ORIGINS       comma-separated CORS origins (default *)
	port := envInt(logger, "PORT", 8080)

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "data/agoraflow.db"
	}
	// Create the data directory if needed (like `mkdir -p`).
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", filepath.Dir(dbPath)),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	weights := model.VoteWeights{
		Up:   envInt(logger, "VOTE_UP_WEIGHT", model.DefaultVoteWeights().Up),
		Down: envInt(logger, "VOTE_DOWN_WEIGHT", model.DefaultVoteWeights().Down),
	}

	var origins []string
	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
	}

	cfg := server.Config{
		Port:            port,
		DBPath:          dbPath,
		VoteWeights:     weights,
		ReportThreshold: envInt(logger, "REPORT_THRESHOLD", model.DefaultReportThreshold),
		CaptchaTTL:      time.Duration(envInt(logger, "CAPTCHA_TTL_SECONDS", 300)) * time.Second,
		AllowedOrigins:  origins,
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until the server is shut down (Ctrl+C or SIGTERM).
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// envInt reads an integer environment variable. A set-but-unparsable value
// is a configuration mistake worth failing loudly for, not defaulting over.
func envInt(logger *slog.Logger, name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		logger.Error("invalid integer env var",
			slog.String("name", name),
			slog.String("value", raw),
		)
		os.Exit(1)
	}
	return n
}
