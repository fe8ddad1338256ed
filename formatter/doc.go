// Package formatter passes generated artifacts through an external code
// formatter. Formatting is best effort: callers use Apply, which falls
// back to the unformatted source and reports FORMATTER_UNAVAILABLE as a
// warning.
package formatter
