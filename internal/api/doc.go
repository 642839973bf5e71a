// Package api provides the HTTP REST API and WebSocket server for Tint
// Core.
//
// It exposes the panel and group catalogue, the set-level command
// endpoint, group administration, the audit trail, and real-time panel
// state over WebSocket.
//
// # Routes
//
//	GET    /api/v1/health                  service status (open)
//	GET    /api/v1/panels                  list panels
//	GET    /api/v1/panels/{id}             one panel
//	GET    /api/v1/groups                  list groups
//	POST   /api/v1/groups                  create group (sim mode)
//	GET    /api/v1/groups/{id}             one group
//	PATCH  /api/v1/groups/{id}             update group (sim mode)
//	DELETE /api/v1/groups/{id}             delete group (sim mode)
//	POST   /api/v1/commands/set-level      tint command (panel or group)
//	GET    /api/v1/audit                   audit listing with filters
//	GET    /api/v1/audit/export            audit CSV download
//	GET    /api/v1/ws                      WebSocket upgrade
//
// Dwell-blocked commands return 429 with the same Result body as a
// success; clients branch on the accepted flag, not the status text.
//
// # Middleware
//
// Every request passes through request-id tagging, structured request
// logging, panic recovery, CORS, and a 1MB body limit. When bearer
// auth is enabled, protected routes validate an HS256 token and the
// token subject becomes the audit actor.
//
// # Lifecycle
//
// The server follows the same pattern as the other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple
// goroutines.
package api
