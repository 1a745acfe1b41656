// Package occupancy owns the seat registry.
//
// Responsibilities: matching published person tracks to seats by centre
// proximity, seat lifecycle (creation, occupation, release, optional
// expiry), occupancy duration and the exceeded flag.
// Key types: Engine, Seat, Event, Episode, Config.
//
// Seats model physical locations. They outlive the track that revealed
// them and are only removed by Reset or, when enabled, by expiry.
package occupancy
