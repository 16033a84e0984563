package auth

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ProvidersPolicy lists the OAuth providers sign-in and sign-up may be
// delegated to, mapping the client-facing name onto the identifier the
// identity provider expects.
type ProvidersPolicy struct {
	Providers []*ProviderPolicy `yaml:"providers"`
}

type ProviderPolicy struct {
	Name       string `yaml:"name"`
	ProviderID string `yaml:"provider_id"`
}

func LoadProvidersPolicy(path string) (*ProvidersPolicy, error) {
	yamlData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read providers policy '%s': %w", path, err)
	}
	var policy ProvidersPolicy
	if err := yaml.Unmarshal(yamlData, &policy); err != nil {
		return nil, fmt.Errorf("failed to unmarshal providers policy '%s': %w", path, err)
	}
	return &policy, nil
}

// DefaultProvidersPolicy enables Google and Microsoft sign-in.
func DefaultProvidersPolicy() *ProvidersPolicy {
	return &ProvidersPolicy{
		Providers: []*ProviderPolicy{
			{Name: "GoogleOAuth", ProviderID: "GoogleOAuth"},
			{Name: "MicrosoftOAuth", ProviderID: "MicrosoftOAuth"},
		},
	}
}

func (p *ProvidersPolicy) Resolve(name string) (string, bool) {
	for _, provider := range p.Providers {
		if provider.Name == name {
			return provider.ProviderID, true
		}
	}
	return "", false
}
