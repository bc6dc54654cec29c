// Configuration loading: a single LoadConfig() reading the env-var
// surface from spec.md §6, grounded on the teacher's CreateRTMPServer
// os.Getenv/strconv.Atoi pattern in rtmp_server.go, with github.com/joho/godotenv
// loading a .env file first (missing file is not an error) the way the
// teacher's own declared dependency is meant to be used.

package main

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full external configuration surface: spec.md §6's table
// plus the ambient/supplemented knobs SPEC_FULL.md adds (coordinator,
// Redis admin channel, per-IP limiting).
type Config struct {
	Host        string
	Port        uint16
	Application string
	StreamKey   string
	IdleTimeout time.Duration
	TLS         bool
	Certificate string
	PrivateKey  string
	Loop        bool

	StrictHandshake bool // placeholder knob; see DESIGN.md Open Questions

	MaxConnectionsPerIP int
	ExemptIPRanges      string

	CallbackURL    string
	CallbackSecret string

	CoordinatorURL    string
	CoordinatorSecret string

	RedisURL     string
	RedisChannel string
}

func LoadConfig() *Config {
	_ = godotenv.Load() // missing .env is not an error

	return &Config{
		Host:        getEnvString("RTMP_HOST", "0.0.0.0"),
		Port:        getEnvUint16("RTMP_PORT", 1935),
		Application: getEnvString("RTMP_APPLICATION", "live"),
		StreamKey:   getEnvString("RTMP_STREAM_KEY", ""),
		IdleTimeout: time.Duration(getEnvInt("RTMP_IDLE_TIMEOUT_SECONDS", 30)) * time.Second,
		TLS:         getEnvBool("RTMP_SSL", false),
		Certificate: getEnvString("SSL_CERT", ""),
		PrivateKey:  getEnvString("SSL_KEY", ""),
		Loop:        getEnvBool("RTMP_LOOP", false),

		StrictHandshake: getEnvBool("RTMP_STRICT_HANDSHAKE", false),

		MaxConnectionsPerIP: getEnvInt("RTMP_MAX_CONNECTIONS_PER_IP", 0),
		ExemptIPRanges:      getEnvString("RTMP_EXEMPT_IPS", ""),

		CallbackURL:    getEnvString("RTMP_CALLBACK_URL", ""),
		CallbackSecret: getEnvString("RTMP_CALLBACK_SECRET", ""),

		CoordinatorURL:    getEnvString("RTMP_COORDINATOR_URL", ""),
		CoordinatorSecret: getEnvString("RTMP_COORDINATOR_SECRET", ""),

		RedisURL:     getEnvString("REDIS_URL", ""),
		RedisChannel: getEnvString("REDIS_CONTROL_CHANNEL", "rtmp-control"),
	}
}

func getEnvString(name, def string) string {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	return v
}

func getEnvInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvUint16(name string, def uint16) uint16 {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 16)
	if err != nil {
		return def
	}
	return uint16(n)
}

func getEnvBool(name string, def bool) bool {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	return v == "YES" || v == "true" || v == "1"
}
