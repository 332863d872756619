package metrics

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// RecordOperation records one completed gate access.
//
// The signature matches the gate package's Recorder interface, so a
// connected Client can be passed to Gate.SetRecorder directly. The write
// is non-blocking; data is batched and sent asynchronously so the gate
// worker never waits on telemetry.
//
// Parameters:
//   - gateID: Unique identifier of the gate (one per connection handle)
//   - op: Operation kind ("sync", "reentrant_sync", "async", "cancellable")
//   - queueWait: Time the access spent queued behind other operations
//   - duration: Time the body spent running on the worker
//   - failed: Whether the body returned an error
func (c *Client) RecordOperation(gateID, op string, queueWait, duration time.Duration, failed bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"gate_operations",
		map[string]string{
			"gate_id":   gateID,
			"operation": op,
		},
		map[string]interface{}{
			"queue_wait_us": queueWait.Microseconds(),
			"duration_us":   duration.Microseconds(),
			"failed":        failed,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// RecordHandleEvent records a signalling event on a connection handle
// (interrupt, suspend, resume, cancel). Used for tracking how often
// accesses are broken out of cooperatively.
//
// Parameters:
//   - gateID: Unique identifier of the gate
//   - event: Event name ("interrupt", "suspend", "resume", "cancel")
func (c *Client) RecordHandleEvent(gateID, event string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"gate_handle_events",
		map[string]string{
			"gate_id": gateID,
			"event":   event,
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
