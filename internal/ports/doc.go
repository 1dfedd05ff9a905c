// Package ports defines the interfaces that connect the replay loop in
// internal/app to its adapters.
//
//   - [RowSource]: a lazy, restartable sequence of log rows
//   - [Sink]: a transport that delivers encoded frames to a peer
//   - [PassSink]: a Sink that needs per-pass setup (UDP)
//   - [Progress]: observer of row counts
//
// The app layer depends only on these interfaces; internal/logsource,
// internal/pacer and internal/transport provide the implementations.
package ports
