// Package tracking owns the multi-object tracker.
//
// Responsibilities: per-track Kalman filtering of image-space boxes,
// Hungarian assignment on IoU cost, and track lifecycle (spawn, hit
// streak, coasting, pruning, publication).
// Key types: Tracker, Track, Config.
//
// Dependency rule: tracking may depend on geom, detect and config, but
// never on occupancy. Seats are not a tracking concern.
package tracking
