// Package http exposes the prediction service: a batch forecast
// endpoint, model metadata, health probes and Prometheus metrics.
// Handlers stay thin and translate the pipeline's typed errors into
// status codes; pipeline internals never leak into response bodies.
package http
