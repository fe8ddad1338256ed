// Package process runs external commands with captured output, context
// cancellation and process-group termination. The formatter package uses
// it to pipe generated source through an external code formatter.
package process
