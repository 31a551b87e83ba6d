package config

import "os"

// APIKeySource represents where an API key comes from.
type APIKeySource string

const (
	KeySourceEnv    APIKeySource = "env"
	KeySourceConfig APIKeySource = "config"
	KeySourceNone   APIKeySource = "none"
)

// KeyStatus represents the status of an API key.
type KeyStatus struct {
	Name     string       `json:"name"`
	EnvVar   string       `json:"env_var"`
	Required bool         `json:"required"`
	Source   APIKeySource `json:"source"`
	IsSet    bool         `json:"is_set"`
	Masked   string       `json:"masked,omitempty"` // e.g., "gsk...abc"
}

// CheckAPIKeys returns the status of the credentials fintel uses.
func CheckAPIKeys(cfg *Config) []KeyStatus {
	return []KeyStatus{
		checkKey("Groq API Key", cfg.LLM.APIKey, EnvGroqKey, true),
		checkKey("ExchangeRate API Key", cfg.Currency.APIKey, EnvExchangeRateKey, false),
	}
}

// Credential returns a function that resolves a credential on every call:
// the environment variable wins, the configured value is the fallback.
// Callers invoke it once per lookup so a key exported after start-up is honoured.
func Credential(envVar, configured string) func() string {
	return func() string {
		if v := os.Getenv(envVar); v != "" {
			return v
		}
		return configured
	}
}

// checkKey checks if a key is set and where it came from.
func checkKey(name, value, envVar string, required bool) KeyStatus {
	status := KeyStatus{
		Name:     name,
		EnvVar:   envVar,
		Required: required,
		IsSet:    value != "",
		Source:   KeySourceNone,
	}

	if value != "" {
		if os.Getenv(envVar) != "" {
			status.Source = KeySourceEnv
		} else {
			status.Source = KeySourceConfig
		}
		status.Masked = maskKey(value)
	}

	return status
}

// maskKey masks an API key for display, showing only the first 3 and last 3 chars.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:3] + "..." + key[len(key)-3:]
}
