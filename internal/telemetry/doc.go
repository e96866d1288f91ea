// Package telemetry distributes rover status and camera events to observer
// browsers over Server-Sent Events.
//
// The relay publishes one event per rover report tick plus image events at
// the camera's own cadence; the hub fans them out to every subscribed
// client, keeps a replay buffer for Last-Event-ID resume, and heartbeats
// idle streams.
package telemetry
