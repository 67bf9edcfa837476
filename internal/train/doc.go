// Package train fits networks to a [dataset.Dataset].
//
// Two objectives are provided:
//
//   - [Plain]: mean-squared error on the observations only
//   - [Physics]: the same data term plus the mean squared residual of
//     dA/dt + k·A = 0 on every collocation point
//
// All mutable training state (parameters, optimizer moments, iteration
// count) lives in a [State] owned by the caller. A [Trainer] only advances
// the State it is handed, so two runs never share anything.
//
// # Divergence
//
// A non-finite loss is not detected unless [Config.CheckFinite] is set, in
// which case the run stops with [ErrDiverged].
package train
