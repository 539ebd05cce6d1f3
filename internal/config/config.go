package config

import (
	"os"
	"strconv"
	"strings"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode      Mode
	HTTPAddr  string
	PublicURL string
	SiteID    string

	DBDriver string
	DBDSN    string

	BlobBasePath string // media assets (question audio/images)

	AuthHMACSecret  string
	EnableLocalAuth bool
	EnableGuestAuth bool

	AdminUser     string
	AdminPassHash string // bcrypt

	ExamDurationSec int

	CORSOriginsOnline  []string
	CORSOriginsOffline []string
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		Mode:      mode,
		HTTPAddr:  addr,
		PublicURL: os.Getenv("PUBLIC_URL"),
		SiteID:    envOr("SITE_ID", "local"),

		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),

		BlobBasePath: envOr("BLOB_BASE_PATH", "./data"),

		AuthHMACSecret:  envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		EnableLocalAuth: envBool("ENABLE_LOCAL_AUTH", true),
		EnableGuestAuth: envBool("ENABLE_GUEST_AUTH", mode == ModeOffline),

		AdminUser:     envOr("ADMIN_USER", "admin"),
		AdminPassHash: envOr("ADMIN_PASS_HASH", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji"),

		ExamDurationSec: envInt("EXAM_DURATION_SEC", 5400),

		CORSOriginsOnline:  csvOr("CORS_ORIGINS_ONLINE", "https://exam.linguagate.app"),
		CORSOriginsOffline: csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000,http://localhost:3010"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func envInt(k string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(k)); err == nil && v > 0 {
		return v
	}
	return def
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
