// Package auth gates the HTTP API behind a credentials file and signed
// session tokens.
package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Config mirrors the credentials file layout.
type Config struct {
	Credentials   Credentials   `yaml:"credentials"`
	Cookie        CookieConfig  `yaml:"cookie"`
	Preauthorized Preauthorized `yaml:"preauthorized"`
}

type Credentials struct {
	Usernames map[string]User `yaml:"usernames"`
}

type User struct {
	Email    string `yaml:"email"`
	Name     string `yaml:"name"`
	Password string `yaml:"password"` // bcrypt hash
}

type CookieConfig struct {
	Name       string  `yaml:"name"`
	Key        string  `yaml:"key"`
	ExpiryDays float64 `yaml:"expiry_days"`
}

type Preauthorized struct {
	Emails []string `yaml:"emails"`
}

// Expiry converts the cookie lifetime to a duration.
func (c CookieConfig) Expiry() time.Duration {
	return time.Duration(c.ExpiryDays * float64(24*time.Hour))
}

// LoadConfig reads and validates a YAML credentials file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read auth config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes and validates YAML credentials.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse auth config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every problem found in the credentials file.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Credentials.Usernames) == 0 {
		errs = append(errs, errors.New("at least one user is required"))
	}
	for name, u := range c.Credentials.Usernames {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, errors.New("blank username"))
			continue
		}
		if _, err := bcrypt.Cost([]byte(u.Password)); err != nil {
			errs = append(errs, fmt.Errorf("user %q: password is not a bcrypt hash", name))
		}
	}
	if strings.TrimSpace(c.Cookie.Name) == "" {
		errs = append(errs, errors.New("cookie name is required"))
	}
	if strings.TrimSpace(c.Cookie.Key) == "" {
		errs = append(errs, errors.New("cookie key is required"))
	}
	if c.Cookie.ExpiryDays <= 0 {
		errs = append(errs, errors.New("cookie expiry_days must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid auth config: %w", errors.Join(errs...))
	}
	return nil
}

// HashPassword returns a bcrypt hash suitable for the credentials file.
func HashPassword(plain string, cost int) (string, error) {
	if plain == "" {
		return "", errors.New("empty password")
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}
