package config_test

import (
	"testing"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/lectern-labs/lectern/internal/config"
)

func TestFinalizeAgentDefaults(t *testing.T) {
	var cfg gaconfig.AgentConfig
	if err := config.FinalizeAgent(&cfg); err != nil {
		t.Fatalf("FinalizeAgent: %v", err)
	}

	if cfg.Name == "" {
		t.Error("expected default agent name")
	}
	if cfg.Client == nil {
		t.Fatal("expected default client config")
	}
	if cfg.Client.Provider == nil {
		t.Fatal("expected default provider config")
	}
	if cfg.Client.Provider.Name != "ollama" {
		t.Errorf("provider name: got %q, want %q", cfg.Client.Provider.Name, "ollama")
	}
	if cfg.Client.Provider.Model == nil {
		t.Fatal("expected default model config")
	}
}

func TestFinalizeAgentPreservesConfigured(t *testing.T) {
	cfg := gaconfig.AgentConfig{
		Name: "vision-analyst",
		Client: &gaconfig.ClientConfig{
			Provider: &gaconfig.ProviderConfig{
				Name:    "azure",
				BaseURL: "https://lectern.openai.azure.com",
				Model:   &gaconfig.ModelConfig{Name: "gpt-4o"},
			},
		},
	}
	if err := config.FinalizeAgent(&cfg); err != nil {
		t.Fatalf("FinalizeAgent: %v", err)
	}

	if cfg.Name != "vision-analyst" {
		t.Errorf("name: got %q, want %q", cfg.Name, "vision-analyst")
	}
	if cfg.Client.Provider.Name != "azure" {
		t.Errorf("provider name: got %q, want %q", cfg.Client.Provider.Name, "azure")
	}
	if cfg.Client.Provider.Model.Name != "gpt-4o" {
		t.Errorf("model name: got %q, want %q", cfg.Client.Provider.Model.Name, "gpt-4o")
	}
}

func TestFinalizeAgentEnvOverrides(t *testing.T) {
	t.Setenv(config.EnvAgentProviderName, "azure")
	t.Setenv(config.EnvAgentBaseURL, "https://lectern.openai.azure.com")
	t.Setenv(config.EnvAgentModelName, "gpt-4o")
	t.Setenv(config.EnvAgentToken, "secret")
	t.Setenv(config.EnvAgentDeployment, "vision")
	t.Setenv(config.EnvAgentAPIVersion, "2024-06-01")
	t.Setenv(config.EnvAgentAuthType, "token")

	var cfg gaconfig.AgentConfig
	if err := config.FinalizeAgent(&cfg); err != nil {
		t.Fatalf("FinalizeAgent: %v", err)
	}

	provider := cfg.Client.Provider
	if provider.Name != "azure" {
		t.Errorf("provider name: got %q, want %q", provider.Name, "azure")
	}
	if provider.BaseURL != "https://lectern.openai.azure.com" {
		t.Errorf("base URL: got %q, want %q", provider.BaseURL, "https://lectern.openai.azure.com")
	}
	if provider.Model.Name != "gpt-4o" {
		t.Errorf("model name: got %q, want %q", provider.Model.Name, "gpt-4o")
	}

	options := map[string]string{
		"token":       "secret",
		"deployment":  "vision",
		"api_version": "2024-06-01",
		"auth_type":   "token",
	}
	for key, want := range options {
		if got := provider.Options[key]; got != want {
			t.Errorf("option %s: got %v, want %q", key, got, want)
		}
	}
}
