package hdfskit

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// DriverFactory opens a Session for a URI using the merged configuration
type DriverFactory func(ctx context.Context, uri *url.URL, cfg *Config) (Session, error)

var (
	driverFactories = make(map[string]DriverFactory)
	factoryMutex    sync.RWMutex
)

// RegisterDriver registers a driver factory function for a URI scheme
func RegisterDriver(scheme string, factory DriverFactory) {
	factoryMutex.Lock()
	defer factoryMutex.Unlock()
	driverFactories[strings.ToLower(scheme)] = factory
}

// Drivers returns the registered schemes in sorted order
func Drivers() []string {
	factoryMutex.RLock()
	defer factoryMutex.RUnlock()
	schemes := make([]string, 0, len(driverFactories))
	for s := range driverFactories {
		schemes = append(schemes, s)
	}
	sort.Strings(schemes)
	return schemes
}

// openSession creates a driver session for uri
func openSession(ctx context.Context, uri *url.URL, cfg *Config) (Session, error) {
	factoryMutex.RLock()
	factory, exists := driverFactories[strings.ToLower(uri.Scheme)]
	factoryMutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: driver %s not registered", ErrNotSupported, uri.Scheme)
	}

	return factory(ctx, uri, cfg)
}
