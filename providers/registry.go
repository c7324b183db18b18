package providers

import (
	"fmt"
	"sort"
	"sync"
)

// ProviderRegistry manages the registration and retrieval of providers.
type ProviderRegistry struct {
	providers map[string]ProviderConstructor
	mutex     sync.RWMutex
}

// NewProviderRegistry creates a registry with the named providers, or with
// every known provider when no names are given.
func NewProviderRegistry(providerNames ...string) *ProviderRegistry {
	registry := &ProviderRegistry{
		providers: make(map[string]ProviderConstructor),
	}

	knownProviders := getKnownProviders()
	if len(providerNames) == 0 {
		for name, constructor := range knownProviders {
			registry.providers[name] = constructor
		}
	} else {
		for _, name := range providerNames {
			if constructor, ok := knownProviders[name]; ok {
				registry.providers[name] = constructor
			}
		}
	}

	return registry
}

func getKnownProviders() map[string]ProviderConstructor {
	return map[string]ProviderConstructor{
		"openai": func(apiKey, model string, extraHeaders map[string]string) Provider {
			return NewOpenAIProvider(apiKey, model, extraHeaders)
		},
		"openai-chat": func(apiKey, model string, extraHeaders map[string]string) Provider {
			return NewOpenAIChatProvider(apiKey, model, extraHeaders)
		},
		"ollama": func(apiKey, model string, extraHeaders map[string]string) Provider {
			return NewOllamaProvider(apiKey, model, extraHeaders)
		},
	}
}

// IsKnownProvider reports whether name is one of the built-in providers.
func IsKnownProvider(name string) bool {
	_, ok := getKnownProviders()[name]
	return ok
}

// Register adds or replaces a provider constructor.
func (r *ProviderRegistry) Register(name string, constructor ProviderConstructor) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.providers[name] = constructor
}

// Get creates a new provider instance using the registered constructor.
func (r *ProviderRegistry) Get(name, apiKey, model string, extraHeaders map[string]string) (Provider, error) {
	r.mutex.RLock()
	constructor, exists := r.providers[name]
	r.mutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}

	return constructor(apiKey, model, extraHeaders), nil
}

// Names lists the registered providers in sorted order.
func (r *ProviderRegistry) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
