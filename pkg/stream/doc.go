// Package stream serves a live.Registry over HTTP.
//
// Routes:
//
//	GET    /healthz           liveness and registry statistics
//	GET    /metrics           Prometheus metrics
//	GET    /sets              list open sets
//	POST   /sets              open a set: {"selector": ".item", "scope": "#main"}
//	GET    /sets/{id}         current members of a set
//	DELETE /sets/{id}         dispose a set
//	GET    /sets/{id}/stream  WebSocket of member snapshots
//	POST   /mutations         apply a list of document mutations
//
// Handlers never touch the registry directly; every access is handed to the
// registry's Loop, which must be running (Serve runs it).
//
// A stream sends one JSON text message per membership change:
//
//	{"set": "01J...", "selector": ".item", "nodes": [{"path": "0/1/0", "tag": "div", "id": "a", "classes": ["item"]}]}
//
// Snapshots are coalesced: a slow client receives the latest membership,
// not every intermediate one.
package stream
