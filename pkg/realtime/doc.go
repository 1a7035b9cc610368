// Package realtime provides the in-process "send-if-connected" transport
// for the notification pipeline: a hub of per-user sessions with
// non-blocking, drop-on-full delivery.
//
// The hub implements the notifications.Transport contract. A transport
// layer (SSE handler, WebSocket, ...) opens a Session per connection via
// Subscribe and streams the events it receives; when no session is open
// for a user, pushes report the user as offline and are discarded, since
// durable storage remains the source of truth.
package realtime
