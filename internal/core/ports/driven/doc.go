// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports). Core services depend on these interfaces,
// never on concrete backends.
package driven
