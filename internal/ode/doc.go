// Package ode provides the primitives used to integrate the decay law numerically.
//
// The package defines:
//
//   - [State]: vector representing the solution at one instant
//   - [System]: interface for ODE systems (dX/dt = f(X, t))
//   - [Integrator]: fixed-step numerical integrator interface
//   - [Solve]: runs an integrator over a time span
//
// The numerical trajectory is a reference for the closed-form solution; the
// networks never see it.
//
// # Example
//
//	law := decay.Law{K: 0.5, A0: 1}
//	res, _ := ode.Solve(ctx, law, integrators.NewRK4(), ode.State{1}, ode.Config{Dt: 0.01, Duration: 10})
package ode
