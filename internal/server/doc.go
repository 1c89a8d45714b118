// Package server implements the HTTP front-end of the detector.
//
// A client uploads an input with POST /detect and receives a session id.
// The run proceeds in the background; GET /progress/{id} streams its
// progress events as server-sent events and GET /report/{id} downloads the
// report once the run has completed. Prometheus metrics are exposed on
// GET /metrics.
package server
