// Package unify is the Unify social network backend.
//
// The binaries live under cmd/:
//
//   - cmd/server: the HTTP API and websocket hub
//   - cmd/migrate: schema migrations
//   - cmd/seed: development data, cleanup and search reindexing
//   - cmd/unify: command-line client for the API
//
// Packages of note:
//
//   - internal/handlers: HTTP handlers for every /api route
//   - internal/friends: friendships and friend suggestions
//   - internal/typing: typing indicators backed by Redis or memory
//   - internal/search: Elasticsearch and SQL search over people, groups and pages
//   - internal/stories: expiring stories and their cleanup job
//   - internal/websocket: realtime push to connected clients
//   - internal/kernel: service container shared by the handlers
package unify
