// Package service implements the archsketch request pipeline.
//
// DiagramService coordinates the HTTP handlers, the CLI and the core
// components. A generate request is admitted through the execution pool and
// then runs build, validate and render inside its slot under a single request
// deadline. Chat requests go straight to the assistant responder and never
// touch the pool.
//
// # Event System
//
// The service publishes events via EventBus for real-time updates to
// connected clients via Server-Sent Events (SSE): admission to the pool,
// completion with the artifact URL, failure with the error kind, and
// reaping of expired artifacts.
//
// # Artifact Reclamation
//
// Reaper removes rendered images older than the configured TTL. It reads
// candidates from the artifact ledger and deletes file and row together.
package service
