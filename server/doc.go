// Package server exposes the transpiler over HTTP using Gin, served over
// HTTP/1.1 and h2c.
//
// Routes:
//
//   - POST /v1/transpile: transpile a workflow graph; ?export=true also
//     writes the artifacts to storage
//   - GET /v1/plugins: list the plugin catalog
//   - GET /health: aggregated component health
//   - GET /info: build information
//
// Errors use the errors.ErrorResponse body; successes use DataResponse.
package server
