// Package httpapi mounts the session endpoints and the protected API tree
// on a net/http ServeMux.
//
//	POST   /session/token   issue (exempt from the gate and the general limiter)
//	DELETE /session/token   revoke the caller's token (protected)
//	GET    /healthz         liveness
//	GET    /metrics         optional exporter handler
//	       /api/...         RateLimit -> Guard -> caller's handler
package httpapi
