// Package config loads tool configuration from ~/.git-ai/config.yml with
// environment-variable overrides. Everything has a working default; a
// missing or unparseable config file never blocks a hook.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Prompt storage policies: where conversation transcripts end up when an
// authorship record is finalized.
const (
	// PromptStorageDefault offloads large transcripts to the content store
	// when one is configured, otherwise strips them.
	PromptStorageDefault = "default"
	// PromptStorageLocal keeps transcripts only in local working logs,
	// stripping them from anything attached to commits.
	PromptStorageLocal = "local"
	// PromptStorageNotes embeds redacted transcripts in the notes.
	PromptStorageNotes = "notes"
)

// Config is the loaded tool configuration.
type Config struct {
	// Quiet suppresses the post-commit stats summary.
	Quiet bool `yaml:"quiet"`
	// SkipHooks disables all hook handling, the kill switch.
	SkipHooks bool `yaml:"skip_hooks"`
	// PromptStorage selects the transcript policy.
	PromptStorage string `yaml:"prompt_storage"`
	// GitCommand overrides the git binary, mainly for tests.
	GitCommand string `yaml:"git_command"`
	// SyncRemote is the remote notes are pushed to and fetched from.
	SyncRemote string `yaml:"sync_remote"`
}

func defaults() Config {
	return Config{
		PromptStorage: PromptStorageDefault,
		GitCommand:    "git",
		SyncRemote:    "origin",
	}
}

// Load reads the config file and applies environment overrides.
func Load() Config {
	cfg := defaults()

	if home, err := os.UserHomeDir(); err == nil {
		data, err := os.ReadFile(filepath.Join(home, ".git-ai", "config.yml"))
		if err == nil {
			var parsed Config
			if yaml.Unmarshal(data, &parsed) == nil {
				merge(&cfg, parsed)
			}
		}
	}

	if envBool("GIT_AI_QUIET") {
		cfg.Quiet = true
	}
	if envBool("GIT_AI_SKIP_HOOKS") {
		cfg.SkipHooks = true
	}
	if v := os.Getenv("GIT_AI_PROMPT_STORAGE"); v != "" {
		cfg.PromptStorage = v
	}
	if v := os.Getenv("GIT_AI_GIT_CMD"); v != "" {
		cfg.GitCommand = v
	}
	return cfg
}

func merge(cfg *Config, parsed Config) {
	cfg.Quiet = cfg.Quiet || parsed.Quiet
	cfg.SkipHooks = cfg.SkipHooks || parsed.SkipHooks
	if parsed.PromptStorage != "" {
		cfg.PromptStorage = parsed.PromptStorage
	}
	if parsed.GitCommand != "" {
		cfg.GitCommand = parsed.GitCommand
	}
	if parsed.SyncRemote != "" {
		cfg.SyncRemote = parsed.SyncRemote
	}
}

func envBool(name string) bool {
	switch os.Getenv(name) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
