package main

import (
	"testing"

	"github.com/nexuscore/gateway/internal/agent"
	"github.com/nexuscore/gateway/internal/config"
	"github.com/nexuscore/gateway/internal/models"
)

func TestBuildRootCmdIncludesSubcommands(t *testing.T) {
	cmd := buildRootCmd()
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	required := []string{"serve", "catalog", "doctor"}
	for _, name := range required {
		if !names[name] {
			t.Fatalf("expected subcommand %q to be registered", name)
		}
	}
}

func TestBuildServeCmdDefaultFlags(t *testing.T) {
	cmd := buildServeCmd()

	tests := map[string]string{
		"host":       "0.0.0.0",
		"port":       "8080",
		"cache-dir":  "./data/cache",
		"log-level":  "info",
		"log-format": "json",
	}
	for name, want := range tests {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			t.Fatalf("expected --%s flag to be registered", name)
		}
		if flag.DefValue != want {
			t.Errorf("--%s default = %q, want %q", name, flag.DefValue, want)
		}
	}
}

func TestWireProvidersSkipsEmptyKeyCredentials(t *testing.T) {
	registry := agent.NewProviderRegistry()
	creds := []config.Credential{
		{Type: models.ProviderOpenAI, Key: ""},
	}
	if err := wireProviders(registry, creds, newLogger("error", "text")); err != nil {
		t.Fatalf("wireProviders: %v", err)
	}
	if _, err := registry.Get(models.ProviderOpenAI); err == nil {
		t.Error("expected no provider registered for a credential with an empty key")
	}
}

func TestWireProvidersRegistersOpenAI(t *testing.T) {
	registry := agent.NewProviderRegistry()
	creds := []config.Credential{
		{Type: models.ProviderOpenAI, Key: "sk-test"},
	}
	if err := wireProviders(registry, creds, newLogger("error", "text")); err != nil {
		t.Fatalf("wireProviders: %v", err)
	}
	if _, err := registry.Get(models.ProviderOpenAI); err != nil {
		t.Errorf("expected openai provider to be registered: %v", err)
	}
}

func TestWireProvidersSkipsAzureWithoutEndpoint(t *testing.T) {
	t.Setenv("AZURE_OPENAI_ENDPOINT", "")
	registry := agent.NewProviderRegistry()
	creds := []config.Credential{
		{Type: models.ProviderAzure, Key: "sk-test"},
	}
	if err := wireProviders(registry, creds, newLogger("error", "text")); err != nil {
		t.Fatalf("wireProviders: %v", err)
	}
	if _, err := registry.Get(models.ProviderAzure); err == nil {
		t.Error("expected no azure provider registered without AZURE_OPENAI_ENDPOINT set")
	}
}

func TestWireProvidersRegistersOpenRouterAndCopilotProxy(t *testing.T) {
	registry := agent.NewProviderRegistry()
	creds := []config.Credential{
		{Type: models.ProviderOpenRouter, Key: "sk-or-test"},
		{Type: models.ProviderCopilotProxy, Key: "http://localhost:3000/v1"},
	}
	if err := wireProviders(registry, creds, newLogger("error", "text")); err != nil {
		t.Fatalf("wireProviders: %v", err)
	}
	if _, err := registry.Get(models.ProviderOpenRouter); err != nil {
		t.Errorf("expected openrouter provider to be registered: %v", err)
	}
	if _, err := registry.Get(models.ProviderCopilotProxy); err != nil {
		t.Errorf("expected copilot_proxy provider to be registered: %v", err)
	}
}
