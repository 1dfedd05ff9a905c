package domain

import "fmt"

// MessageKind selects the wire format rows are encoded into.
type MessageKind string

const (
	KindNMEA0183 MessageKind = "0183"
	KindNMEA2000 MessageKind = "2000"
	KindSignalK  MessageKind = "signalk"
)

// Tag is the protocol substring a row must carry to be replayed as this kind.
func (k MessageKind) Tag() string {
	return string(k)
}

// ParseMessageKind validates a kind given on the command line or in a file.
func ParseMessageKind(s string) (MessageKind, error) {
	switch k := MessageKind(s); k {
	case KindNMEA0183, KindNMEA2000, KindSignalK:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedKind, s)
}

// Role selects how encoded rows are delivered.
type Role string

const (
	RoleTCP     Role = "tcp"
	RoleUDP     Role = "udp"
	RoleSignalK Role = "signalk"
	RoleSerial  Role = "serial"
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleTCP, RoleUDP, RoleSignalK, RoleSerial:
		return r, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrInvalidConfig, s)
}
