// Package torch provides the built-in PyTorch plugins: markers, input
// tensors, layers, the Sequential and Module containers, losses and
// optimizers. Register adds them to a local registry under the "torch"
// namespace.
package torch
