// Package api implements the relay HTTP surface: steering intent
// submission, the rover report exchange, camera frames, telemetry SSE,
// history and health. All JSON responses share one envelope format.
package api
