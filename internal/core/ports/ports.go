// Package ports defines the boundaries between the resolver's core and its
// external collaborators: the UDP socket it is handed, and the audit store
// it writes to.
package ports

import (
	"context"
	"net"

	"github.com/sereno-dns/recurdns/internal/core/domain"
)

// PacketConn is the collaborator contract the server requires of the
// socket: bind happens before a PacketConn exists, so this interface covers
// only the recv/send surface the server actually drives. net.PacketConn
// satisfies it directly; tests supply a fake.
type PacketConn interface {
	ReadFrom(p []byte) (n int, addr net.Addr, err error)
	WriteTo(p []byte, addr net.Addr) (n int, err error)
	Close() error
}

// AuditRecorder persists a record of one completed query. Implementations
// must be safe to call after the response has already gone out — a slow or
// failing recorder must never hold up or fail a client's answer.
type AuditRecorder interface {
	Record(ctx context.Context, entry domain.AuditEntry) error
}
