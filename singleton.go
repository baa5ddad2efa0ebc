package ceangal

import (
	"sync"

	"github.com/toutaio/toutago-ceangal-service-resolver/registry"
)

// sharedInstance holds one singleton value and ensures it is created once.
type sharedInstance struct {
	value interface{}
	err   error
	once  sync.Once
}

// singletonCache manages singleton instances with thread-safe lazy
// initialization. Slots are keyed by registration identity, so two
// registrations of the same contract (for example a named and an unnamed
// one) each get their own instance.
type singletonCache struct {
	mu        sync.RWMutex
	instances map[*registry.Registration]*sharedInstance
}

// newSingletonCache creates an empty cache.
func newSingletonCache() *singletonCache {
	return &singletonCache{
		instances: make(map[*registry.Registration]*sharedInstance),
	}
}

// getOrCreate returns the cached instance for the registration, creating it
// with factory on first use. The factory runs exactly once per registration,
// even under concurrent access; a factory error is cached alongside.
func (sc *singletonCache) getOrCreate(reg *registry.Registration, factory func() (interface{}, error)) (interface{}, error) {
	sc.mu.RLock()
	slot, ok := sc.instances[reg]
	sc.mu.RUnlock()

	if !ok {
		sc.mu.Lock()
		// Another goroutine may have installed the slot meanwhile.
		slot, ok = sc.instances[reg]
		if !ok {
			slot = &sharedInstance{}
			sc.instances[reg] = slot
		}
		sc.mu.Unlock()
	}

	slot.once.Do(func() {
		slot.value, slot.err = factory()
	})
	return slot.value, slot.err
}
