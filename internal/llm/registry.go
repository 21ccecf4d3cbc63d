package llm

import (
	"fmt"
	"sort"
	"strings"
)

// ProviderFactory builds a configured Provider from environment settings.
type ProviderFactory func() (Provider, error)

// Backends register themselves here from their init functions. The gemini
// backend is pulled in via a blank import in cmd/server.
var providers = make(map[string]ProviderFactory)

// RegisterProvider makes a backend selectable by LLM_PROVIDER.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// NewProvider instantiates the named backend. Unknown names report what is
// actually registered so a misconfigured deployment fails with a usable hint.
func NewProvider(name string) (Provider, error) {
	factory, exists := providers[name]
	if !exists {
		return nil, fmt.Errorf("unsupported provider %q (registered: %s)", name, strings.Join(registered(), ", "))
	}
	return factory()
}

func registered() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
