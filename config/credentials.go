package config

import (
	"fmt"
	"os"
	"strings"
)

// Credentials are the secrets the configured AI provider needs to start.
type Credentials struct {
	// APIKey is empty for vertex, which authenticates with application default credentials.
	APIKey string
}

// apiKey is an API key setting that may also be given as a path via <key>-file.
type apiKey struct {
	key   string
	value string
	file  string
}

// Credentials resolves the API key of the configured provider. A key file wins over an
// inline value, and surrounding whitespace is dropped.
func (c *Config) Credentials() (Credentials, error) {
	var k apiKey
	switch c.AI.Provider {
	case ProviderGemini:
		k = apiKey{key: "ai.gemini.api-key", value: c.AI.Gemini.APIKey, file: c.AI.Gemini.APIKeyFile}
	case ProviderOpenAI:
		k = apiKey{key: "ai.openai.api-key", value: c.AI.OpenAI.APIKey, file: c.AI.OpenAI.APIKeyFile}
	default:
		return Credentials{}, nil
	}

	secret, err := k.resolve()
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{APIKey: secret}, nil
}

func (k apiKey) resolve() (string, error) {
	value := k.value
	if file := strings.TrimSpace(k.file); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("%s-file: %w", k.key, err)
		}
		if value = strings.TrimSpace(string(data)); value == "" {
			return "", fmt.Errorf("%s-file %q is empty", k.key, file)
		}
		return value, nil
	}

	if value = strings.TrimSpace(value); value == "" {
		hint := k.key
		if env := legacyEnv[k.key]; len(env) > 0 {
			hint = strings.Join(env, " or ")
		}
		return "", fmt.Errorf("%s is not configured (set %s or %s-file)", k.key, hint, k.key)
	}
	return value, nil
}
