package prestashop

import (
	"errors"
	"strings"
	"time"

	"github.com/erp/prestashop-connector/internal/domain/connector"
)

// Errors for client configuration
var (
	ErrConfigMissingLocation = errors.New("prestashop: location is required")
	ErrConfigMissingKey      = errors.New("prestashop: webservice key is required")
)

// Config holds the connection settings of one PrestaShop shop
type Config struct {
	// Location is the shop URL, with or without the /api suffix
	Location string
	// WebserviceKey is sent as the basic auth user name
	WebserviceKey string
	Version       connector.Version
	Timeout       time.Duration
	// RetryCount is the number of retries on network errors and 5xx responses
	RetryCount int
	RetryWait  time.Duration
	// MaxResponseSize caps response bodies, in bytes
	MaxResponseSize int64
	Debug           bool
}

// NewConfig creates a configuration with defaults
func NewConfig(location, key string, version connector.Version) *Config {
	return &Config{
		Location:        location,
		WebserviceKey:   key,
		Version:         version,
		Timeout:         60 * time.Second,
		RetryCount:      2,
		RetryWait:       time.Second,
		MaxResponseSize: 32 * 1024 * 1024,
	}
}

// Validate validates the configuration and applies defaults
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Location) == "" {
		return ErrConfigMissingLocation
	}
	if strings.TrimSpace(c.WebserviceKey) == "" {
		return ErrConfigMissingKey
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.RetryCount < 0 {
		c.RetryCount = 0
	}
	if c.MaxResponseSize <= 0 {
		c.MaxResponseSize = 32 * 1024 * 1024
	}
	if c.Version == "" {
		c.Version = connector.DefaultVersion
	}
	return nil
}

// APIURL returns the normalized web service URL, without trailing slash
func (c *Config) APIURL() string {
	return Location(c.Location)
}

// Location normalizes a shop URL: "/api" is appended when missing and
// "http://" is prepended when there is no scheme.
func Location(raw string) string {
	location := strings.TrimRight(strings.TrimSpace(raw), "/")
	if !strings.HasSuffix(location, "/api") {
		location += "/api"
	}
	if !strings.HasPrefix(location, "http") {
		location = "http://" + location
	}
	return location
}
