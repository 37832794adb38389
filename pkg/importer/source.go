package importer

import (
	"encoding/json"
	"path/filepath"

	"github.com/trustify/trustify/pkg/apperr"
)

// SourceKind names which Walker implementation an importer's
// configuration dispatches to.
type SourceKind string

const (
	SourceGit  SourceKind = "git"
	SourceHTTP SourceKind = "http"
	SourceQuay SourceKind = "quay"
)

// sourceEnvelope is the subset of an importer's configuration every
// source kind shares, read once to decide which walker-specific config
// to unmarshal next.
type sourceEnvelope struct {
	Kind   SourceKind        `json:"kind"`
	Labels map[string]string `json:"labels"`
}

// GitConfig configures the Git walker for one importer.
type GitConfig struct {
	URL    string `json:"url"`
	Branch string `json:"branch"`
	Path   string `json:"path"` // sub-path within the repo to walk; "" means the whole tree
}

// HTTPConfig configures the HTTP index walker for one importer.
type HTTPConfig struct {
	URL string `json:"url"`
}

// QuayConfig configures the Quay registry walker for one importer.
type QuayConfig struct {
	Namespace  string `json:"namespace"`
	APIBaseURL string `json:"api_base_url"` // overrides config.QuaySourceConfig.APIBaseURL when set
}

func parseEnvelope(configuration []byte) (sourceEnvelope, error) {
	var env sourceEnvelope
	if err := json.Unmarshal(configuration, &env); err != nil {
		return env, apperr.Wrap(apperr.KindParse, err, "parse importer configuration")
	}
	if env.Kind == "" {
		return env, apperr.New(apperr.KindParse, "importer configuration missing \"kind\"")
	}
	return env, nil
}

func parseGitConfig(configuration []byte) (GitConfig, error) {
	var cfg GitConfig
	if err := json.Unmarshal(configuration, &cfg); err != nil {
		return cfg, apperr.Wrap(apperr.KindParse, err, "parse git importer configuration")
	}
	if cfg.URL == "" {
		return cfg, apperr.New(apperr.KindParse, "git importer configuration missing \"url\"")
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	return cfg, nil
}

func parseHTTPConfig(configuration []byte) (HTTPConfig, error) {
	var cfg HTTPConfig
	if err := json.Unmarshal(configuration, &cfg); err != nil {
		return cfg, apperr.Wrap(apperr.KindParse, err, "parse http importer configuration")
	}
	if cfg.URL == "" {
		return cfg, apperr.New(apperr.KindParse, "http importer configuration missing \"url\"")
	}
	return cfg, nil
}

func parseQuayConfig(configuration []byte) (QuayConfig, error) {
	var cfg QuayConfig
	if err := json.Unmarshal(configuration, &cfg); err != nil {
		return cfg, apperr.Wrap(apperr.KindParse, err, "parse quay importer configuration")
	}
	if cfg.Namespace == "" {
		return cfg, apperr.New(apperr.KindParse, "quay importer configuration missing \"namespace\"")
	}
	return cfg, nil
}

// workDirFor returns the per-importer working directory a Git clone is
// kept in across runs, namespaced under root by importer name so two
// importers never collide.
func workDirFor(root, name string) string {
	return filepath.Join(root, "git", name)
}
