package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// fileConfig is the json5 shape of a config file. Durations are Go duration
// strings ("2s", "1m30s"); bools are pointers so an explicit false can
// override an environment default.
type fileConfig struct {
	Search struct {
		BaseURL string `json:"base_url"`
		Term    string `json:"term"`
		Country string `json:"country"`
		Limit   int    `json:"limit"`
	} `json:"search"`
	Retry struct {
		MaxAttempts int    `json:"max_attempts"`
		Timeout     string `json:"timeout"`
		Backoff     string `json:"backoff"`
		MaxBackoff  string `json:"max_backoff"`
		Strategy    string `json:"strategy"`
	} `json:"retry"`
	Browser struct {
		Headless   *bool  `json:"headless"`
		Stealth    *bool  `json:"stealth"`
		NoSandbox  *bool  `json:"no_sandbox"`
		BrowserBin string `json:"browser_bin"`
		Proxy      string `json:"proxy"`
		UserAgent  string `json:"user_agent"`
	} `json:"browser"`
	Filter struct {
		BlockedResources []string `json:"blocked_resources"`
		BlockedHosts     []string `json:"blocked_hosts"`
	} `json:"filter"`
	Output struct {
		Path   string `json:"path"`
		Format string `json:"format"`
		DB     string `json:"db"`
	} `json:"output"`
	Log struct {
		Level  string `json:"level"`
		Format string `json:"format"`
	} `json:"log"`
	RespectRobots *bool  `json:"respect_robots"`
	DebugDir      string `json:"debug_dir"`
}

func splitExt(f string) (string, string) {
	for i := len(f) - 1; i >= 0; i-- {
		if f[i] == '.' {
			return f[0:i], f[i+1:]
		}
	}
	return f, ""
}

// readFileConfig reads <name>.<ext> and then <name>.local.<ext>, the latter
// taking priority. A missing file is skipped; both missing is an error.
func readFileConfig(name string) (fileConfig, error) {
	var out fileConfig
	found := false

	prefix, ext := splitExt(filepath.Base(name))
	localPath := filepath.Join(filepath.Dir(name), fmt.Sprintf("%s.local.%s", prefix, ext))

	for _, path := range []string{name, localPath} {
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return out, err
		}
		var layer fileConfig
		if err := json5.Unmarshal(raw, &layer); err != nil {
			return out, fmt.Errorf("parse %s: %w", path, err)
		}
		if err := mergo.Merge(&out, layer, mergo.WithOverride); err != nil {
			return out, fmt.Errorf("merge %s: %w", path, err)
		}
		found = true
	}

	if !found {
		return out, fmt.Errorf("config file %s not found", name)
	}
	return out, nil
}

// LoadFile loads the environment configuration and overlays the json5 file
// at path (plus its .local sibling) on top of it.
func LoadFile(path string) (*Config, error) {
	cfg := Load()
	if path == "" {
		return cfg, nil
	}

	fc, err := readFileConfig(path)
	if err != nil {
		return nil, err
	}
	overlay, err := fc.toConfig()
	if err != nil {
		return nil, err
	}
	if err := mergo.Merge(cfg, overlay, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("apply %s: %w", path, err)
	}

	if fc.Browser.Headless != nil {
		cfg.Browser.Headless = *fc.Browser.Headless
	}
	if fc.Browser.Stealth != nil {
		cfg.Browser.Stealth = *fc.Browser.Stealth
	}
	if fc.Browser.NoSandbox != nil {
		cfg.Browser.NoSandbox = *fc.Browser.NoSandbox
	}
	if fc.RespectRobots != nil {
		cfg.Scraper.RespectRobots = *fc.RespectRobots
	}
	return cfg, nil
}

// toConfig converts the file shape into a sparse Config whose zero fields
// leave the environment values untouched when merged.
func (fc fileConfig) toConfig() (Config, error) {
	var c Config
	c.Search = SearchConfig{
		BaseURL: fc.Search.BaseURL,
		Term:    fc.Search.Term,
		Country: fc.Search.Country,
		Limit:   fc.Search.Limit,
	}
	c.Scraper.MaxAttempts = fc.Retry.MaxAttempts
	c.Scraper.BackoffStrategy = strings.ToLower(fc.Retry.Strategy)
	c.Scraper.BlockedResourceTypes = fc.Filter.BlockedResources
	c.Scraper.BlockedHosts = fc.Filter.BlockedHosts
	c.Scraper.DebugDir = fc.DebugDir

	durations := []struct {
		raw  string
		name string
		dst  *time.Duration
	}{
		{fc.Retry.Timeout, "retry.timeout", &c.Scraper.AttemptTimeout},
		{fc.Retry.Backoff, "retry.backoff", &c.Scraper.Backoff},
		{fc.Retry.MaxBackoff, "retry.max_backoff", &c.Scraper.MaxBackoff},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return c, fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = parsed
	}

	c.Browser.BrowserBin = fc.Browser.BrowserBin
	c.Browser.Proxy = fc.Browser.Proxy
	c.Browser.UserAgent = fc.Browser.UserAgent
	c.Output = OutputConfig{Path: fc.Output.Path, Format: fc.Output.Format, DBPath: fc.Output.DB}
	c.Log = LogConfig{Level: fc.Log.Level, Format: fc.Log.Format}
	return c, nil
}
