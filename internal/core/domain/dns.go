// Package domain holds the types shared across the resolver's service and
// adapter layers that do not belong to the wire codec itself.
package domain

import "time"

// AuditEntry describes one completed client query, recorded best-effort
// after the response has already been sent. It is purely observational:
// nothing in the resolution path ever reads one back.
type AuditEntry struct {
	QueriedAt  time.Time
	ClientAddr string
	QName      string
	QType      string
	ResCode    string
	UpstreamNS string
	DurationMS int64
}
