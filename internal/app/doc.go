// Package app wires the configuration, logger, metrics and import resolver
// into one App, decoupled from any specific entrypoint like a CLI or server.
package app
