// Package ceangal provides a call-site based dependency injection container
// for Go.
//
// Ceangal (Irish: "binding" or "tie") resolves a registered service by
// building an execution plan (a call site) once, and replaying its
// compiled form on every later resolution. A call site is one of three
// variants: a constant (preexisting instance or parameter default), a
// constructor invocation over recursively resolved argument plans, or
// parameterless default construction.
//
// # Quick Start
//
// Create a container and register services:
//
//	container := ceangal.New()
//	container.Bind((*Logger)(nil), &ConsoleLogger{})
//	logger := container.Make((*Logger)(nil)).(Logger)
//
// # Constructor Injection
//
// Constructor functions have their parameters resolved from the container,
// in declaration order:
//
//	func NewUserService(logger Logger, db Database) (*UserService, error)
//
//	container.BindConstructor((*UserService)(nil), NewUserService)
//
// A parameter whose type has no registration fails resolution with an
// unresolved-dependency error, unless a default was declared for it:
//
//	container.BindConstructor((*Widget)(nil), NewWidget, ceangal.DefaultArg(1, 3))
//
// Constructor selection is deliberately simple: a constructor is used only
// when it is the single injectable candidate on the registration. With zero
// or several candidates the container falls back to zero-argument
// construction of the implementation type.
//
// # Lifetimes
//
// Transient registrations construct on every resolution, singletons once,
// scoped registrations once per scope:
//
//	container.Singleton((*Cache)(nil), &MemoryCache{})
//
//	scope := container.CreateScope()
//	defer scope.Dispose()
//	uow := scope.Make((*UnitOfWork)(nil)).(UnitOfWork)
//
// # Error Handling
//
// MakeSafe returns errors instead of panicking:
//
//	service, err := container.MakeSafe((*Service)(nil))
//
// A failing constructor surfaces its own error to the caller, never a
// wrapper. Circular dependencies are detected during plan construction and
// reported with the full resolution path.
//
// # Thread Safety
//
// Registration and resolution are goroutine-safe. A built call site is
// immutable and may be invoked concurrently.
package ceangal
