// Package vdrplayer replays captured marine data logs onto a live transport.
//
// A log is a CSV file of NMEA traffic with a received_at column holding
// millisecond arrival times. vdrplayer reads it row by row, keeps the rows of
// one message kind, sleeps for the recorded gap between consecutive rows and
// sends each row, re-encoded for its protocol, to a single consumer.
//
// # Basic Usage
//
//	cfg := vdrplayer.DefaultConfig()
//	cfg.Role = "udp"
//	cfg.Messages = "2000"
//	cfg.LogFile = "/var/log/vdr/monitor.csv"
//
//	r, err := vdrplayer.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := r.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// [Replay.Run] blocks until every pass has been sent. [Replay.Start] runs the
// replay in the background; [Replay.Wait] and [Replay.Stop] end it.
//
// # Roles
//
//   - tcp: listen on Interface:Port and stream to the first client.
//   - udp: send one datagram per row to Destination:Port.
//   - signalk: serve a WebSocket on Interface:Port, one message per row.
//   - serial: write rows to Device at Baud, 8N1.
//
// # Event Handling
//
// Implement [EventHandler] (embed [BaseEventHandler] for no-op defaults) and
// pass it with [WithEventHandler] to follow state changes and rows.
// Handlers run on the replay goroutine and should return quickly.
//
// # Lifecycle States
//
// A replay moves through [StateIdle], [StateListening], [StateServing],
// [StateClosing] and ends in [StateStopped], or in [StateFailed] after a
// transport error. Use [Replay.Status] to query it.
package vdrplayer
