// Package file loads runtime settings from the TOML config file and
// the SEI_* environment, environment taking precedence.
package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/automatiza-mg/sei-cli/internal/core/domain"
)

// Settings is the validated runtime configuration.
type Settings struct {
	// Login is the portal user name.
	Login string `toml:"login"`

	// Secret is the portal password. Never logged.
	Secret string `toml:"secret"`

	// OrgCode is the organisation code sent with the login and kept
	// in the session cookie.
	OrgCode string `toml:"org_code"`

	// Unit is the organisational unit runs must execute under.
	Unit string `toml:"unit"`

	// BaseURL overrides the portal host.
	BaseURL string `toml:"base_url"`

	// DataDir is where history, dumps and artifacts land by default.
	DataDir string `toml:"data_dir"`

	// Debug enables verbose logging.
	Debug bool `toml:"debug"`

	// DebugHTML enables raw page dumps.
	DebugHTML bool `toml:"debug_html"`

	// DebugHTMLLimit caps how many pages are dumped per run.
	DebugHTMLLimit int `toml:"debug_html_limit"`
}

// Env variable names, matching what operators already export for the
// portal tooling.
const (
	envLogin     = "SEI_USER"
	envSecret    = "SEI_PASS"
	envOrgCode   = "SEI_ORGAO"
	envUnit      = "SEI_UNIDADE"
	envBaseURL   = "SEI_BASE_URL"
	envDataDir   = "SEI_DATA_DIR"
	envDebug     = "SEI_DEBUG"
	envDebugHTML = "SEI_SAVE_DEBUG_HTML"
)

// DefaultPath returns the default config file location,
// ~/.sei-cli/config.toml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".sei-cli", "config.toml")
}

// Load reads settings from the given TOML file, if it exists, and
// applies environment overrides. A missing file is not an error; a
// malformed one is.
func Load(path string) (*Settings, error) {
	settings := &Settings{}

	if path == "" {
		path = DefaultPath()
	}
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(raw, settings); err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrConfiguration, path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// Environment-only configuration is fine.
	default:
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrConfiguration, path, err)
	}

	settings.applyEnv()
	settings.applyDefaults()
	return settings, nil
}

func (s *Settings) applyEnv() {
	if v := os.Getenv(envLogin); v != "" {
		s.Login = v
	}
	if v := os.Getenv(envSecret); v != "" {
		s.Secret = v
	}
	if v := os.Getenv(envOrgCode); v != "" {
		s.OrgCode = v
	}
	if v := os.Getenv(envUnit); v != "" {
		s.Unit = v
	}
	if v := os.Getenv(envBaseURL); v != "" {
		s.BaseURL = v
	}
	if v := os.Getenv(envDataDir); v != "" {
		s.DataDir = v
	}
	if v, ok := parseBool(os.Getenv(envDebug)); ok {
		s.Debug = v
	}
	if v, ok := parseBool(os.Getenv(envDebugHTML)); ok {
		s.DebugHTML = v
	}
}

func (s *Settings) applyDefaults() {
	s.Login = strings.TrimSpace(s.Login)
	s.OrgCode = strings.TrimSpace(s.OrgCode)
	s.Unit = strings.TrimSpace(s.Unit)
	if s.DataDir == "" {
		s.DataDir = "data"
	}
}

// Validate checks that every required value is present. It runs
// before any network activity.
func (s *Settings) Validate() error {
	var missing []string
	if s.Login == "" {
		missing = append(missing, envLogin)
	}
	if s.Secret == "" {
		missing = append(missing, envSecret)
	}
	if s.OrgCode == "" {
		missing = append(missing, envOrgCode)
	}
	if s.Unit == "" {
		missing = append(missing, envUnit)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", domain.ErrConfiguration, strings.Join(missing, ", "))
	}
	return nil
}

// Credentials returns the portal credentials held by these settings.
func (s *Settings) Credentials() domain.Credentials {
	return domain.Credentials{Login: s.Login, Secret: s.Secret, OrgCode: s.OrgCode}
}

// DumpDir is where debug page dumps land.
func (s *Settings) DumpDir() string {
	return filepath.Join(s.DataDir, "dumps")
}

// parseBool accepts the truthy and falsy spellings operators use.
func parseBool(value string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "t", "yes", "y", "sim", "s":
		return true, true
	case "0", "false", "f", "no", "n", "nao", "não":
		return false, true
	}
	return false, false
}
