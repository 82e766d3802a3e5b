// Package server exposes engine pools over HTTP.
//
// Routes:
//
//	GET    /healthz                            liveness
//	GET    /metrics                            Prometheus exposition (with WithGatherer)
//	GET    /v1/pools                           pool names
//	GET    /v1/pools/:name/stats               pool occupancy
//	POST   /v1/pools/:name/reason              set slots and facts, reason, return the slot diff
//	GET    /v1/pools/:name/facts/:template     decoded facts of a template
//	DELETE /v1/pools/:name/sessions/:id        drop a persisted working memory
//	POST   /v1/pools/:name/suggest             ranked intent suggestions
//
// A reason request that names a session restores the working memory saved
// under it and saves it again when the engine is released.
package server
