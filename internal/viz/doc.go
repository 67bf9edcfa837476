// Package viz renders training progress and predictions in the terminal.
//
// The live view is a Bubble Tea program that advances both trainers a chunk
// of iterations per tick and redraws:
//
//   - loss curves of both models (asciigraph)
//   - the current predictions of each model against the true curve on a
//     Braille [Canvas]
//   - progress, latest losses and held-out error
//
// # Key Bindings
//
//	Space - Pause/Resume training
//	+/-   - Double/halve iterations per tick
//	T     - Cycle color themes
//	?     - Show help overlay
//	Q     - Stop and keep the current state
package viz
