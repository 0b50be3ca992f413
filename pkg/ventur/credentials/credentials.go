// Package credentials resolves named Ventur API credential sets.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// DefaultBaseURL is used when a credential set does not name one.
const DefaultBaseURL = "https://api.venturhq.com"

// DefaultName is the credential set used when none is requested.
const DefaultName = "venturApi"

// ErrNotFound is returned when a store has no credential set under the requested name.
var ErrNotFound = errors.New("credential set not found")

// Credentials is one API key and the base URL it is valid for.
type Credentials struct {
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseUrl"`
}

// String never prints the key.
func (c Credentials) String() string {
	return fmt.Sprintf("{baseUrl=%s apiKey=<redacted>}", c.BaseURL)
}

func (c Credentials) normalized() Credentials {
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	return c
}

func (c Credentials) validate(name string) error {
	if c.APIKey == "" {
		return fmt.Errorf("credential set %q: apiKey is required", name)
	}
	return nil
}

// Store returns a credential set by name.
type Store interface {
	Get(name string) (Credentials, error)
}

// EnvStore reads credentials from environment variables.
//
// The default set reads VENTUR_API_KEY and VENTUR_BASE_URL. Any other name reads
// VENTUR_<NAME>_API_KEY and VENTUR_<NAME>_BASE_URL, where NAME is upper-cased with
// non-alphanumerics replaced by underscores.
type EnvStore struct {
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

func (s EnvStore) Get(name string) (Credentials, error) {
	getenv := s.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	prefix := envPrefix(name)
	key := getenv(prefix + "API_KEY")
	if strings.TrimSpace(key) == "" {
		if isDefaultName(name) {
			return Credentials{}, fmt.Errorf("%sAPI_KEY is required", prefix)
		}
		return Credentials{}, fmt.Errorf("%w: %q (set %sAPI_KEY)", ErrNotFound, name, prefix)
	}
	c := Credentials{
		APIKey:  key,
		BaseURL: getenv(prefix + "BASE_URL"),
	}.normalized()
	return c, c.validate(name)
}

func isDefaultName(name string) bool {
	name = strings.TrimSpace(name)
	return name == "" || strings.EqualFold(name, "default") || name == DefaultName
}

func envPrefix(name string) string {
	if isDefaultName(name) {
		return "VENTUR_"
	}
	var b strings.Builder
	b.WriteString("VENTUR_")
	for _, r := range strings.TrimSpace(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
			continue
		}
		b.WriteByte('_')
	}
	b.WriteByte('_')
	return b.String()
}

// FileStore serves credential sets parsed from a YAML document of the form:
//
//	credentials:
//	  venturApi:
//	    apiKey: vk_live_...
//	    baseUrl: https://api.venturhq.com
//	  staging:
//	    apiKeyFile: /run/secrets/ventur-staging
type FileStore struct {
	sets map[string]Credentials
}

type fileDoc struct {
	Credentials map[string]fileEntry `yaml:"credentials"`
}

type fileEntry struct {
	APIKey     string `yaml:"apiKey"`
	APIKeyFile string `yaml:"apiKeyFile"`
	BaseURL    string `yaml:"baseUrl"`
}

// LoadFile reads a YAML credential file.
func LoadFile(path string) (*FileStore, error) {
	b, err := os.ReadFile(strings.TrimSpace(path))
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	return ParseFile(b)
}

// ParseFile parses the YAML credential document.
func ParseFile(b []byte) (*FileStore, error) {
	var doc fileDoc
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse credentials YAML: %w", err)
	}
	sets := make(map[string]Credentials, len(doc.Credentials))
	for name, e := range doc.Credentials {
		key := e.APIKey
		if strings.TrimSpace(key) == "" && strings.TrimSpace(e.APIKeyFile) != "" {
			kb, err := os.ReadFile(strings.TrimSpace(e.APIKeyFile))
			if err != nil {
				return nil, fmt.Errorf("credential set %q: read apiKeyFile: %w", name, err)
			}
			key = string(kb)
		}
		c := Credentials{APIKey: key, BaseURL: e.BaseURL}.normalized()
		if err := c.validate(name); err != nil {
			return nil, err
		}
		sets[name] = c
	}
	return &FileStore{sets: sets}, nil
}

func (s *FileStore) Get(name string) (Credentials, error) {
	if s == nil {
		return Credentials{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	name = strings.TrimSpace(name)
	if isDefaultName(name) {
		name = DefaultName
	}
	c, ok := s.sets[name]
	if !ok {
		return Credentials{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return c, nil
}

// Chain tries each store in order and returns the first set found. Errors other than
// ErrNotFound stop the search.
type Chain []Store

func (c Chain) Get(name string) (Credentials, error) {
	var lastErr error
	for _, s := range c {
		creds, err := s.Get(name)
		if err == nil {
			return creds, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Credentials{}, err
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return Credentials{}, lastErr
}
