// Package nn implements the small dense tanh network shared by both trainers.
//
// Every forward pass can carry the derivative of the output with respect to
// the scalar input alongside the activations (forward-mode through the layer
// graph). [Network.Backward] then back-propagates adjoints of both the outputs
// and their input-derivatives, so a loss built from dA/dt stays differentiable
// with respect to the parameters.
//
// Activations are stored column-per-sample: a batch of N inputs is a 1×N
// matrix and hidden layer l produces a width(l)×N matrix.
//
//	net := nn.NewDefault(rand.New(rand.NewSource(42)))
//	cache, _ := net.Forward(ts, true)
//	// cache.Output(), cache.Tangent() hold A(t) and dA/dt
//	net.Backward(cache, dOut, dTangent)
package nn
