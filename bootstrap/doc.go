// Package bootstrap runs flowtorch processes with a uniform lifecycle:
// typed config defaults and validation, start hooks, a health based ready
// check, a startup summary, and graceful shutdown on SIGINT or SIGTERM.
//
// Run is for long running services; RunTask is for finite commands such
// as a one-shot code generation.
package bootstrap
