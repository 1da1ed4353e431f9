// Package handler implements the HTTP layer of the archsketch API.
//
// # Handlers
//
// DiagramHandler exposes the diagram service: generation, the assistant,
// the node-type catalog, health, and the rendered images themselves.
//
// Middleware provides panic recovery, CORS, and request logging with a
// per-request id carried in the request context.
//
// # Response Format
//
// Generation always answers with {success, image_url, specification, message};
// failures set success to false, report an error_kind and, for rejected
// specifications, the full list of violations. Other endpoints return their
// data directly, and errors as {error, details}.
//
// Failure kinds map to status codes: bad input is 400, a rejected
// specification is 422, model and parse failures are 502, a full pool is 503,
// a deadline is 504, and everything else is 500.
//
// # Server-Sent Events
//
// The /events endpoint is served by the hub package and streams pipeline
// events to connected clients.
package handler
