// Package handler exposes the ipscope HTTP API on top of gin.
//
// Routes:
//
//	POST   /api/live/scan        run a scan over a JSON array of CIDRs (empty = active ranges)
//	GET    /api/live             current state of every known address
//	GET    /api/live/export      live table as ?format=json|yaml|ansible
//	GET    /api/live/:ip         current state of one address
//	GET    /api/scan/last        summary of the most recent run
//	GET    /api/ip_map           host-by-host owner map of an active ?range=
//	GET    /api/history          history records (?ip=&run_id=&limit=&offset=)
//	GET    /api/history/:id      one history record
//	GET    /api/ranges           configured ranges
//	POST   /api/ranges           add a range
//	PUT    /api/ranges/:id       change a range
//	DELETE /api/ranges/:id       remove a range
//	GET    /api/assignments      ownership assignments
//	PUT    /api/assignments/:ip  assign an owner
//	DELETE /api/assignments/:ip  remove an assignment
//	GET    /events               server-sent events
//	GET    /health               liveness
//
// Error responses are JSON objects of the form {"error": ..., "details": ...}.
package handler
