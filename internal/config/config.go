package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string

	LogMode string // dev|prod
	LogFile string // optional rotating file, stdout only when empty

	DBDriver string
	DBDSN    string

	BlobBasePath string

	AuthSecret      string
	EnableLocalAuth bool
	CORSOrigins     []string

	// Local generation endpoint (Ollama-compatible /api/chat)
	GenBaseURL        string
	GenModel          string
	GenTimeout        time.Duration
	GenOutputFormat   string // json|lines
	GenMaxPromptChars int
	GenMaxChunks      int

	ChunkSize    int
	ChunkOverlap int

	TesseractCmd    string
	OCRLangs        string
	OCRTimeout      time.Duration
	PDFToTextCmd    string
	PDFToPPMCmd     string
	PDFMinTextChars int

	DocWorkers int

	// in-progress attempts older than this are marked abandoned; 0 disables
	AttemptStaleAfter time.Duration
	SiteID            string
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	return Config{
		Mode:     mode,
		HTTPAddr: envOr("HTTP_ADDR", ":8080"),

		LogMode: envOr("LOG_MODE", "dev"),
		LogFile: os.Getenv("LOG_FILE"),

		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),

		BlobBasePath: envOr("BLOB_BASE_PATH", "./data"),

		AuthSecret:      envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		EnableLocalAuth: envBool("ENABLE_LOCAL_AUTH", mode == ModeOffline),
		CORSOrigins:     csvOr("CORS_ORIGINS", "http://localhost:4200"),

		GenBaseURL:        strings.TrimSuffix(envOr("OLLAMA_BASE_URL", "http://localhost:11434"), "/"),
		GenModel:          envOr("OLLAMA_MODEL", "qcm-generator"),
		GenTimeout:        envDuration("OLLAMA_TIMEOUT", 300*time.Second),
		GenOutputFormat:   envOr("GEN_OUTPUT_FORMAT", "json"),
		GenMaxPromptChars: envInt("GEN_MAX_PROMPT_CHARS", 2000),
		GenMaxChunks:      envInt("GEN_MAX_CHUNKS", 1),

		ChunkSize:    envInt("CHUNK_SIZE", 4000),
		ChunkOverlap: envInt("CHUNK_OVERLAP", 200),

		TesseractCmd:    envOr("TESSERACT_CMD", "/usr/bin/tesseract"),
		OCRLangs:        envOr("OCR_LANGS", "fra+eng"),
		OCRTimeout:      envDuration("OCR_TIMEOUT", 60*time.Second),
		PDFToTextCmd:    envOr("PDFTOTEXT_CMD", "pdftotext"),
		PDFToPPMCmd:     envOr("PDFTOPPM_CMD", "pdftoppm"),
		PDFMinTextChars: envInt("PDF_MIN_TEXT_CHARS", 50),

		DocWorkers: envInt("DOC_WORKERS", 4),

		AttemptStaleAfter: envDuration("ATTEMPT_STALE_AFTER", 24*time.Hour),
		SiteID:            envOr("SITE_ID", "local"),
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
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// envDuration accepts Go durations ("90s", "5m") or a bare number of seconds.
func envDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
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
