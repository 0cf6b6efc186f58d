package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath     string
	ScanDir    string
	OutputDir  string
	RawMailDir string

	TemplatePath     string
	TemplateSheet    string
	TemplateMaxRow   int
	TemplateStartRow int
	TemplateLastCol  string

	TesseractPath string
	TesseractLang string
	OCRPSM        int
	OCRTimeoutMs  int
	OCRUseHOCR    bool
	OCRMaxProcs   int
	RasterDPI     int

	ExtractWorkers int

	PlausibleYearsBack int
	FutureSlackHours   int

	VendorMatchThreshold float64

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMarkSeen bool

	ListenerProvider    string
	ListenerLabel       string
	ListenerIntervalSec int
	ListenerFetchMax    int
	ListenerAutoExport  bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:     getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		ScanDir:    getEnv("SCAN_DIR", filepath.Join(cwd, "data", "scans")),
		OutputDir:  getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		RawMailDir: getEnv("RAW_MAIL_DIR", filepath.Join(cwd, "data", "mail")),

		TemplatePath:     getEnv("TEMPLATE_PATH", ""),
		TemplateSheet:    getEnv("TEMPLATE_SHEET", "Sheet1"),
		TemplateMaxRow:   getEnvInt("TEMPLATE_MAX_ROW", 44),
		TemplateStartRow: getEnvInt("TEMPLATE_START_ROW", 6),
		TemplateLastCol:  getEnv("TEMPLATE_LAST_COL", "K"),

		TesseractPath: getEnv("TESSERACT_PATH", "tesseract"),
		TesseractLang: getEnv("TESSERACT_LANG", "eng"),
		OCRPSM:        getEnvInt("OCR_PSM", 4),
		OCRTimeoutMs:  getEnvInt("OCR_TIMEOUT_MS", 60000),
		OCRUseHOCR:    getEnvBool("OCR_USE_HOCR", false),
		OCRMaxProcs:   getEnvInt("OCR_MAX_PROCS", 2),
		RasterDPI:     getEnvInt("RASTER_DPI", 300),

		ExtractWorkers: getEnvInt("EXTRACT_WORKERS", 1),

		PlausibleYearsBack: getEnvInt("PLAUSIBLE_YEARS_BACK", 7),
		FutureSlackHours:   getEnvInt("FUTURE_SLACK_HOURS", 24),

		VendorMatchThreshold: getEnvFloat("VENDOR_MATCH_THRESHOLD", 0.85),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMarkSeen: getEnvBool("IMAP_MARK_SEEN", false),

		ListenerProvider:    getEnv("LISTENER_PROVIDER", "imap"),
		ListenerLabel:       getEnv("LISTENER_LABEL", "INBOX"),
		ListenerIntervalSec: getEnvInt("LISTENER_INTERVAL_SEC", 60),
		ListenerFetchMax:    getEnvInt("LISTENER_FETCH_MAX", 20),
		ListenerAutoExport:  getEnvBool("LISTENER_AUTO_EXPORT", true),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
