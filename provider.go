package ceangal

import (
	"fmt"
	"reflect"
)

// ServiceProvider groups related registrations into an installable module.
//
// Example:
//
//	type LoggingProvider struct{}
//
//	func (p *LoggingProvider) Register(container *Ceangal) error {
//	    return container.Singleton((*Logger)(nil), &ConsoleLogger{})
//	}
type ServiceProvider interface {
	Register(container *Ceangal) error
}

// BootableProvider is an optional interface for providers that need a boot
// phase after every provider has registered.
type BootableProvider interface {
	ServiceProvider
	Boot(container *Ceangal) error
}

// DeferredProvider is an optional interface for providers that register
// conditionally.
type DeferredProvider interface {
	ServiceProvider
	ShouldRegister(container *Ceangal) bool
}

// providerEntry tracks a registered provider.
type providerEntry struct {
	provider ServiceProvider
	booted   bool
}

// RegisterProvider installs a service provider. Its Register method runs
// immediately; Boot, if implemented, runs when BootProviders is called.
// Installing the same provider type twice is a no-op.
func (c *Ceangal) RegisterProvider(provider ServiceProvider) error {
	if provider == nil {
		return fmt.Errorf("provider cannot be nil")
	}

	if deferred, ok := provider.(DeferredProvider); ok {
		if !deferred.ShouldRegister(c) {
			return nil
		}
	}

	providerType := reflect.TypeOf(provider)
	if c.hasProvider(providerType) {
		return nil
	}

	// The lock is not held across Register, so a provider may install
	// further providers or bind services without deadlocking.
	if err := provider.Register(c); err != nil {
		return fmt.Errorf("provider registration failed: %w", err)
	}

	c.providerMu.Lock()
	defer c.providerMu.Unlock()
	for _, entry := range c.providers {
		if reflect.TypeOf(entry.provider) == providerType {
			return nil
		}
	}
	c.providers = append(c.providers, &providerEntry{provider: provider})
	return nil
}

func (c *Ceangal) hasProvider(providerType reflect.Type) bool {
	c.providerMu.Lock()
	defer c.providerMu.Unlock()

	for _, entry := range c.providers {
		if reflect.TypeOf(entry.provider) == providerType {
			return true
		}
	}
	return false
}

// BootProviders runs the boot phase of every registered provider that
// implements BootableProvider, then validates the registration graph when
// the container was created with WithValidation.
//
// Example:
//
//	container.RegisterProvider(&DatabaseProvider{})
//	container.RegisterProvider(&CacheProvider{})
//	if err := container.BootProviders(); err != nil {
//	    log.Fatal(err)
//	}
func (c *Ceangal) BootProviders() error {
	c.providerMu.Lock()
	entries := make([]*providerEntry, len(c.providers))
	copy(entries, c.providers)
	c.providerMu.Unlock()

	for _, entry := range entries {
		if entry.booted {
			continue
		}
		if bootable, ok := entry.provider.(BootableProvider); ok {
			if err := bootable.Boot(c); err != nil {
				return fmt.Errorf("provider boot failed: %w", err)
			}
			entry.booted = true
		}
	}

	if c.validating {
		return c.Validate()
	}
	return nil
}

// GetProviders returns the registered providers, for introspection.
func (c *Ceangal) GetProviders() []ServiceProvider {
	c.providerMu.Lock()
	defer c.providerMu.Unlock()

	providers := make([]ServiceProvider, len(c.providers))
	for i, entry := range c.providers {
		providers[i] = entry.provider
	}
	return providers
}
