// Package metrics provides InfluxDB telemetry for sqlgate.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, non-blocking batched writes, and health monitoring.
//
// # Purpose
//
// This package records gate operation telemetry:
//   - queue wait and execution duration per access
//   - operation kind (sync, reentrant_sync, async, cancellable)
//   - handle signalling events (interrupt, suspend, resume)
//
// # Usage
//
//	client, err := metrics.Connect(cfg.Metrics)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	g := gate.New(conn, gate.Config{})
//	g.SetRecorder(client)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes, so the gate
// worker is never stalled by telemetry.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via a
// callback. Connection and health check errors are returned directly.
package metrics
