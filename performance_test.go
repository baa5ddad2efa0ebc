package ceangal

import (
	"testing"
)

func BenchmarkMake_Transient(b *testing.B) {
	container := New()
	_ = container.Bind((*Logger)(nil), &ConsoleLogger{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = container.Make((*Logger)(nil))
	}
}

func BenchmarkMake_Singleton(b *testing.B) {
	container := New()
	_ = container.Singleton((*Logger)(nil), &ConsoleLogger{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = container.Make((*Logger)(nil))
	}
}

func BenchmarkMake_ConstructorGraph(b *testing.B) {
	container := New()
	_ = container.Bind((*Logger)(nil), &ConsoleLogger{})
	_ = container.Bind((*Database)(nil), &MockDB{})
	_ = container.BindConstructor((*UserService)(nil), NewUserService)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = container.Make((*UserService)(nil))
	}
}

// BenchmarkInvoke_Uncompiled measures the raw plan walk, bypassing the
// container's compiled accessor cache.
func BenchmarkInvoke_Uncompiled(b *testing.B) {
	container := New()
	_ = container.Bind((*Logger)(nil), &ConsoleLogger{})
	_ = container.Bind((*Database)(nil), &MockDB{})
	_ = container.BindConstructor((*UserService)(nil), NewUserService)

	cs, err := container.CallSiteFor(typeOf((*UserService)(nil)), NewResolutionStack())
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := cs.Invoke(container.root); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkScope_Make(b *testing.B) {
	container := New()
	_ = container.Scoped((*UnitOfWork)(nil), &DbUnitOfWork{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		scope := container.CreateScope()
		_ = scope.Make((*UnitOfWork)(nil))
		_ = scope.Dispose()
	}
}
