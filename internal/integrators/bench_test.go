package integrators

import (
	"testing"

	"github.com/san-kum/pinnlab/internal/ode"
)

func BenchmarkEuler(b *testing.B) {
	integrator := NewEuler()
	sys := expDecay{k: 0.5}
	x := ode.State{1.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(sys, x, 0, 0.01)
	}
}

func BenchmarkMidpoint(b *testing.B) {
	integrator := NewMidpoint()
	sys := expDecay{k: 0.5}
	x := ode.State{1.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(sys, x, 0, 0.01)
	}
}

func BenchmarkRK4(b *testing.B) {
	integrator := NewRK4()
	sys := expDecay{k: 0.5}
	x := ode.State{1.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(sys, x, 0, 0.01)
	}
}
