package models

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nexuscore/gateway/internal/observability"
	"gopkg.in/yaml.v3"
)

const deprecatedPrefix = "_deprecated_"

// catalogDocument mirrors the wire shape of the provider catalog document
// (see the gateway's external interface documentation): a nested
// chat.providers.<providerType>.models.<modelId> tree.
type catalogDocument struct {
	Chat catalogChatSection `json:"chat" yaml:"chat"`
}

type catalogChatSection struct {
	Providers map[string]catalogProviderEntry `json:"providers" yaml:"providers"`
}

type catalogProviderEntry struct {
	Models map[string]catalogModelEntry `json:"models" yaml:"models"`
}

type catalogModelEntry struct {
	Category          string     `json:"category" yaml:"category"`
	ContextWindow     int        `json:"contextWindow" yaml:"contextWindow"`
	MaxOutputTokens   int        `json:"maxOutputTokens" yaml:"maxOutputTokens"`
	SupportsTools     bool       `json:"supportsTools" yaml:"supportsTools"`
	SupportsStreaming bool       `json:"supportsStreaming" yaml:"supportsStreaming"`
	SupportsJSONMode  bool       `json:"supportsJsonMode" yaml:"supportsJsonMode"`
	SupportsVision    bool       `json:"supportsVision" yaml:"supportsVision"`
	Pricing           Pricing    `json:"pricing" yaml:"pricing"`
	RateLimits        RateLimits `json:"rateLimits" yaml:"rateLimits"`
	Deprecated        bool       `json:"deprecated" yaml:"deprecated"`
	Available         *bool      `json:"available" yaml:"available"`
}

// LoadCatalogFile reads a provider catalog document from disk. The file
// extension selects the decoder: ".json" uses encoding/json, anything else
// (".yaml", ".yml", or no extension) is parsed as YAML, consistent with how
// internal/config's loader dispatches on extension.
func LoadCatalogFile(path string, logger *observability.Logger) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog document: %w", err)
	}
	return ParseCatalogDocument(data, filepath.Ext(path), logger)
}

// ParseCatalogDocument parses a provider catalog document (JSON or YAML,
// selected by ext) into a new Catalog. Every model is normalized against the
// dual deprecation encoding: a model is deprecated if its `deprecated` field
// is true OR its key in the document is prefixed "_deprecated_" — in the
// latter case the prefix is stripped from the registered model ID and a
// one-time warning is logged, since the boolean field is the canonical form
// going forward.
func ParseCatalogDocument(data []byte, ext string, logger *observability.Logger) (*Catalog, error) {
	var doc catalogDocument

	if strings.EqualFold(ext, ".json") {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse catalog document as json: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse catalog document as yaml: %w", err)
		}
	}

	catalog := NewEmptyCatalog()
	ctx := context.Background()

	for providerType, providerEntry := range doc.Chat.Providers {
		for modelKey, entry := range providerEntry.Models {
			modelID := modelKey
			deprecated := entry.Deprecated

			if strings.HasPrefix(modelKey, deprecatedPrefix) {
				modelID = strings.TrimPrefix(modelKey, deprecatedPrefix)
				deprecated = true
				if logger != nil {
					logger.Warn(ctx, "catalog: legacy _deprecated_ prefix in use, prefer the deprecated boolean field",
						"provider", providerType, "model_key", modelKey)
				}
			}

			available := true
			if entry.Available != nil {
				available = *entry.Available
			}

			model := &Model{
				ID:              modelID,
				Name:            modelID,
				Provider:        Provider(providerType),
				Category:        Category(entry.Category),
				ContextWindow:   entry.ContextWindow,
				MaxOutputTokens: entry.MaxOutputTokens,
				Capabilities:    capabilitiesFromEntry(entry),
				Deprecated:      deprecated,
				Available:       available,
				Pricing:         entry.Pricing,
				RateLimits:      entry.RateLimits,
			}

			catalog.Register(model)
		}
	}

	return catalog, nil
}

func capabilitiesFromEntry(entry catalogModelEntry) []Capability {
	var caps []Capability
	if entry.SupportsTools {
		caps = append(caps, CapTools)
	}
	if entry.SupportsStreaming {
		caps = append(caps, CapStreaming)
	}
	if entry.SupportsJSONMode {
		caps = append(caps, CapJSON)
	}
	if entry.SupportsVision {
		caps = append(caps, CapVision)
	}
	if entry.ContextWindow >= 100_000 {
		caps = append(caps, CapLongContext)
	}
	return caps
}
