// Package registry stores service registrations and hands them to the
// resolver. It is deliberately dumb: ordered storage and retrieval only,
// no resolution logic.
package registry

import (
	"fmt"
	"reflect"
	"sync"
)

// Registration associates a contract type with one concrete implementation
// and a lifetime policy. Registrations are immutable once handed to a Table;
// the resolver only reads them.
type Registration struct {
	// ContractType is the type callers ask the container for.
	ContractType reflect.Type

	// ConcreteType is the implementation type, normally a pointer to struct.
	// Nil when the registration carries a preexisting Instance.
	ConcreteType reflect.Type

	// Lifetime is one of "transient", "singleton", "scoped".
	Lifetime string

	// Instance is an optional preexisting value. When set, resolution
	// short-circuits to a constant plan and Constructors is ignored.
	Instance interface{}

	// Constructors holds candidate constructor metadata. Each element
	// stores a *constructorInfo owned by the root package; keeping it as
	// interface{} avoids an import cycle.
	Constructors []interface{}

	// AutoWire requests field injection after default construction.
	AutoWire bool

	// Name is set for named registrations only.
	Name string
}

// Table is the registration table: ordered sequences of registrations per
// contract type. Registering the same contract again appends; Get returns
// the most recent entry, GetAll returns every entry in registration order.
//
// All methods are goroutine-safe.
type Table struct {
	mu    sync.RWMutex
	regs  map[reflect.Type][]*Registration
	named map[reflect.Type]map[string]*Registration
}

// NewTable creates an empty registration table.
func NewTable() *Table {
	return &Table{
		regs:  make(map[reflect.Type][]*Registration),
		named: make(map[reflect.Type]map[string]*Registration),
	}
}

// Register appends a registration for its contract type. Later
// registrations win over earlier ones when a single entry is requested.
func (t *Table) Register(reg *Registration) error {
	if reg == nil {
		return fmt.Errorf("registration cannot be nil")
	}
	if reg.ContractType == nil {
		return fmt.Errorf("registration must carry a contract type")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.regs[reg.ContractType] = append(t.regs[reg.ContractType], reg)
	return nil
}

// Get returns the most recent registration for the contract type.
func (t *Table) Get(contract reflect.Type) (*Registration, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	seq := t.regs[contract]
	if len(seq) == 0 {
		return nil, &NotFoundError{Type: contract}
	}
	return seq[len(seq)-1], nil
}

// Lookup is Get without the error allocation, for resolver hot paths.
func (t *Table) Lookup(contract reflect.Type) (*Registration, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	seq := t.regs[contract]
	if len(seq) == 0 {
		return nil, false
	}
	return seq[len(seq)-1], true
}

// GetAll returns every registration for the contract type in registration
// order. The returned slice is a copy.
func (t *Table) GetAll(contract reflect.Type) []*Registration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	seq := t.regs[contract]
	if len(seq) == 0 {
		return nil
	}
	out := make([]*Registration, len(seq))
	copy(out, seq)
	return out
}

// Has reports whether at least one registration exists for the contract.
func (t *Table) Has(contract reflect.Type) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.regs[contract]) > 0
}

// RegisterNamed stores a named registration. Multiple registrations of the
// same contract may coexist under different names; duplicate names error.
func (t *Table) RegisterNamed(reg *Registration) error {
	if reg == nil {
		return fmt.Errorf("registration cannot be nil")
	}
	if reg.Name == "" {
		return fmt.Errorf("named registration must have a name")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.named[reg.ContractType] == nil {
		t.named[reg.ContractType] = make(map[string]*Registration)
	}
	if _, exists := t.named[reg.ContractType][reg.Name]; exists {
		return fmt.Errorf("named registration %q for type %v already exists", reg.Name, reg.ContractType)
	}
	t.named[reg.ContractType][reg.Name] = reg
	return nil
}

// GetNamed returns the registration stored under the given name.
func (t *Table) GetNamed(contract reflect.Type, name string) (*Registration, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	byName, ok := t.named[contract]
	if !ok {
		return nil, &NotFoundError{Type: contract}
	}
	reg, ok := byName[name]
	if !ok {
		return nil, fmt.Errorf("named registration %q for type %v not found", name, contract)
	}
	return reg, nil
}

// GetAllNamed returns every named registration for the contract type. The
// returned slice is a copy; order is unspecified.
func (t *Table) GetAllNamed(contract reflect.Type) []*Registration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	byName := t.named[contract]
	if len(byName) == 0 {
		return nil
	}
	out := make([]*Registration, 0, len(byName))
	for _, reg := range byName {
		out = append(out, reg)
	}
	return out
}

// ContractTypes returns every contract type with at least one registration,
// named or unnamed. Order is unspecified.
func (t *Table) ContractTypes() []reflect.Type {
	t.mu.RLock()
	defer t.mu.RUnlock()

	seen := make(map[reflect.Type]bool)
	for contract := range t.regs {
		seen[contract] = true
	}
	for contract := range t.named {
		seen[contract] = true
	}

	types := make([]reflect.Type, 0, len(seen))
	for contract := range seen {
		types = append(types, contract)
	}
	return types
}

// NotFoundError is returned when no registration exists for a contract type.
type NotFoundError struct {
	Type reflect.Type
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no registration for type %v", e.Type)
}
