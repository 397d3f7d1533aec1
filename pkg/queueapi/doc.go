// Package queueapi exposes a queue over HTTP for producers on other hosts and
// for operators.
//
// Routes:
//
//	GET  /health/live         always 200 ALIVE
//	GET  /health/ready        200 READY when every readiness check passes, else 503
//	GET  /status              task and worker counts as JSON
//	POST /tasks               enqueue one task            (token)
//	POST /tasks/batch         bulk import, 409 if backlog (token)
//	POST /slots/{n}/release   release slot n, ?force=true (token)
//
// Token routes expect "Authorization: Bearer <token>" carrying one of the
// queue's persisted producer tokens. With WithRateLimit each token draws
// from its own bucket and over-limit requests get 429.
package queueapi
