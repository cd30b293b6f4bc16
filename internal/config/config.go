package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	HTTPAddr    string   `yaml:"http_addr"`
	LogLevel    string   `yaml:"log_level"`
	CORSOrigins []string `yaml:"cors_origins"`

	Store    StoreConfig    `yaml:"store"`
	Sheets   SheetsConfig   `yaml:"sheets"`
	Admin    AdminConfig    `yaml:"admin"`
	WhatsApp WhatsAppConfig `yaml:"whatsapp"`
}

// StoreConfig configures the local backends
type StoreConfig struct {
	// Driver is "file" or "sqlite". Ignored when Sheets.SpreadsheetID is set.
	Driver     string `yaml:"driver"`
	FilePath   string `yaml:"file_path"`
	SeedPath   string `yaml:"seed_path"`
	SQLitePath string `yaml:"sqlite_path"`
}

// SheetsConfig configures the spreadsheet backend and its credentials.
// Any one of CredentialsJSON, ClientEmail+PrivateKey, CredentialsFile or
// DevCredentialsFile is enough.
type SheetsConfig struct {
	SpreadsheetID      string `yaml:"spreadsheet_id"`
	Tab                string `yaml:"tab"`
	CredentialsJSON    string `yaml:"-"`
	ClientEmail        string `yaml:"client_email"`
	PrivateKey         string `yaml:"-"`
	CredentialsFile    string `yaml:"credentials_file"`
	DevCredentialsFile string `yaml:"dev_credentials_file"`
}

// AdminConfig guards the admin endpoints. An empty password leaves them open.
type AdminConfig struct {
	Password  string `yaml:"-"`
	JWTSecret string `yaml:"-"`
}

// WhatsAppConfig configures the optional WhatsApp RSVP channel
type WhatsAppConfig struct {
	Enabled   bool   `yaml:"enabled"`
	DataDir   string `yaml:"data_dir"`
	EventDate string `yaml:"event_date"`
	Location  string `yaml:"location"`
	Hosts     string `yaml:"hosts"`
}

// Backend names the record store selected by this configuration.
func (c *Config) Backend() string {
	if strings.TrimSpace(c.Sheets.SpreadsheetID) != "" {
		return "sheets"
	}
	if strings.EqualFold(c.Store.Driver, "sqlite") {
		return "sqlite"
	}
	return "file"
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		HTTPAddr:    ":8080",
		LogLevel:    "info",
		CORSOrigins: []string{"*"},
		Store: StoreConfig{
			Driver:     "file",
			FilePath:   "data/guests.json",
			SeedPath:   "data/seed.json",
			SQLitePath: "data/guests.db",
		},
		Sheets: SheetsConfig{
			Tab:                "Guests",
			DevCredentialsFile: "service-account.json",
		},
		WhatsApp: WhatsAppConfig{
			DataDir:   "data",
			EventDate: "Saturday, January 1, 2025",
			Location:  "Venue TBD",
			Hosts:     "Bride & Groom",
		},
	}
}

// LoadConfig loads .env (if present), then the YAML file named by
// INVITE_CONFIG (if set), then environment variables on top.
func LoadConfig() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("INVITE_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.HTTPAddr = getEnv("HTTP_ADDR", c.HTTPAddr)
	if port := os.Getenv("PORT"); port != "" {
		c.HTTPAddr = ":" + port
	}
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		c.CORSOrigins = splitList(raw)
	}

	c.Store.Driver = getEnv("STORE_DRIVER", c.Store.Driver)
	c.Store.FilePath = getEnv("GUESTS_DB_PATH", c.Store.FilePath)
	c.Store.SeedPath = getEnv("GUESTS_SEED_PATH", c.Store.SeedPath)
	c.Store.SQLitePath = getEnv("GUESTS_SQLITE_PATH", c.Store.SQLitePath)

	c.Sheets.SpreadsheetID = getEnv("GOOGLE_SHEETS_ID", c.Sheets.SpreadsheetID)
	c.Sheets.Tab = getEnv("GOOGLE_SHEETS_TAB", c.Sheets.Tab)
	c.Sheets.CredentialsJSON = getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", c.Sheets.CredentialsJSON)
	c.Sheets.ClientEmail = getEnv("GOOGLE_SERVICE_ACCOUNT_EMAIL", c.Sheets.ClientEmail)
	c.Sheets.PrivateKey = getEnv("GOOGLE_PRIVATE_KEY", c.Sheets.PrivateKey)
	c.Sheets.CredentialsFile = getEnv("GOOGLE_APPLICATION_CREDENTIALS", c.Sheets.CredentialsFile)

	c.Admin.Password = getEnv("ADMIN_PASSWORD", c.Admin.Password)
	c.Admin.JWTSecret = getEnv("JWT_SECRET", c.Admin.JWTSecret)

	c.WhatsApp.Enabled = getEnvBool("WHATSAPP_ENABLED", c.WhatsApp.Enabled)
	c.WhatsApp.DataDir = getEnv("WHATSAPP_DATA_DIR", c.WhatsApp.DataDir)
	c.WhatsApp.EventDate = getEnv("EVENT_DATE", c.WhatsApp.EventDate)
	c.WhatsApp.Location = getEnv("EVENT_LOCATION", c.WhatsApp.Location)
	c.WhatsApp.Hosts = getEnv("EVENT_HOSTS", c.WhatsApp.Hosts)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
