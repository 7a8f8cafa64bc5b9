// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/note-export/internal/api"
	"github.com/pdiddy/note-export/internal/markdown"
	"github.com/pdiddy/note-export/pkg/types"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultRateLimit = 1.0
	defaultUserAgent = "note-export/0.1"

	apiTokenFile = ".secrets/api-token"
)

// loadConfig unmarshals the viper configuration and applies defaults.
func loadConfig() (*types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = defaultTimeout
	}
	if cfg.API.RateLimitPerSecond == 0 {
		cfg.API.RateLimitPerSecond = defaultRateLimit
	}
	if cfg.API.UserAgent == "" {
		cfg.API.UserAgent = defaultUserAgent
	}
	if cfg.WebSocket.UserAgent == "" {
		cfg.WebSocket.UserAgent = cfg.API.UserAgent
	}
	if cfg.Export.FilenameLength == 0 {
		cfg.Export.FilenameLength = markdown.DefaultFilenameLength
	}
	if cfg.WebSocket.EditorToken == "" {
		cfg.WebSocket.EditorToken = secretDefault("editor-token", "")
	}
	return &cfg, nil
}

// selectKB picks the knowledge base to operate on: by GUID when the --kb
// flag names one, the first configured entry otherwise.
func selectKB(cfg *types.Config, guid string) (types.KnowledgeBase, error) {
	if len(cfg.KnowledgeBases) == 0 {
		return types.KnowledgeBase{}, fmt.Errorf("no knowledge bases configured; add a knowledge_bases entry to the config file")
	}
	if guid == "" {
		return cfg.KnowledgeBases[0], nil
	}
	for _, kb := range cfg.KnowledgeBases {
		if kb.GUID == guid {
			return kb, nil
		}
	}
	return types.KnowledgeBase{}, fmt.Errorf("knowledge base %q not found in configuration", guid)
}

// buildClient constructs the REST client for one knowledge base. The API
// token comes from .secrets/api-token; refreshes re-read the same file.
func buildClient(cfg *types.Config, kb types.KnowledgeBase) (*api.Client, api.Auth, error) {
	token := secretDefault("api-token", "")
	auth, err := api.NewStaticAuth(kb.GUID, kb.Server, cfg.UserGUID, cfg.UserName, token, apiTokenFile)
	if err != nil {
		return nil, nil, err
	}
	return api.NewClient(auth, cfg.API), auth, nil
}
