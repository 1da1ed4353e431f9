// Package domain defines the core domain types for the archsketch diagram pipeline.
//
// This package contains the graph description produced from model output and the
// rules every description must satisfy before it is rendered.
//
// # Core Types
//
// Specification is the root artifact of one request: a named set of nodes,
// connections between them, and clusters that group them.
//
// Node is a single architecture component. Its Type names an entry in the node
// type registry (for example "ec2" or "cloud_sql").
//
// Connection is a directed edge between two nodes with an optional label.
//
// Cluster groups nodes visually. Clusters may nest through ParentID and the
// parent relation must form a forest.
//
// # Validation
//
// Validate checks a candidate Specification against the data-model invariants
// and collects every Violation it finds rather than stopping at the first.
// It never mutates its input and returns a detached copy on success.
//
// # Errors
//
// The pipeline error taxonomy (LLMError, ParseError, ValidationError,
// RenderError, PoolTimeoutError, TimeoutError) lives here so that every layer
// can classify failures with errors.Is and errors.As without importing the
// layer that produced them.
//
// # Design Principles
//
// - No I/O and no external dependencies
// - A Specification is built per request and never shared across requests
// - Validation is a pure filter, not a mutator
package domain
