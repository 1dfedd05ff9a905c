// Package domain contains the core entities of vdrplayer.
//
// It has no dependencies on infrastructure (files, sockets, logging) and
// holds only the replay vocabulary:
//
//   - [Row]: one immutable record of a captured log
//   - [MessageKind]: the wire format a replay produces
//   - [Role]: the transport strategy used to deliver it
//   - the error taxonomy shared by every layer ([ErrBadRow], [ErrTransport], ...)
package domain
