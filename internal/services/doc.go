// Package services wires the mdsearch pipeline from configuration.
//
// Build creates the embedding provider, the vector store and the retrieval
// components on top of them, and returns a Registry with accessors for each.
// Both the daemon and the CLI start from a Registry; tests construct one
// directly with NewRegistry.
package services
