package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr     string
	LogLevel string
	// EngineURL is the ws(s) endpoint of the playback engine.
	EngineURL   string
	InsecureTLS bool
	// FetchTimeout bounds one application-side HTTP fetch. Zero means no
	// timeout; the protocol layer itself never imposes one.
	FetchTimeout time.Duration
	// SourceURI, when set, makes the daemon create one custom-source session
	// for it at startup and start playback.
	SourceURI        string
	SourceFormatHint string
}

func FromEnv() Config {
	cfg := Config{
		Addr:             getEnv("ADDR", ":9105"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		EngineURL:        getEnv("ENGINE_URL", "ws://127.0.0.1:9106/engine"),
		SourceURI:        getEnv("SOURCE_URI", ""),
		SourceFormatHint: getEnv("SOURCE_FORMAT_HINT", ""),
	}
	if os.Getenv("INSECURE_TLS") == "1" || os.Getenv("INSECURE_TLS") == "true" {
		cfg.InsecureTLS = true
	}
	cfg.FetchTimeout = time.Duration(getEnvInt("FETCH_TIMEOUT_MS", 0)) * time.Millisecond
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
