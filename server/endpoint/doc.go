// Package endpoint provides the system endpoints of the HTTP server.
package endpoint
