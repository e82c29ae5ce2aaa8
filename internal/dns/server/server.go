// Package server implements the UDP query handler (C7) and the iterative
// resolver (C6) it drives. The server is single-threaded and cooperative:
// Run processes one client request — including every upstream exchange
// that request triggers — to completion before accepting the next.
package server

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/sereno-dns/recurdns/internal/core/domain"
	"github.com/sereno-dns/recurdns/internal/core/ports"
	"github.com/sereno-dns/recurdns/internal/dns/packet"
	"github.com/sereno-dns/recurdns/internal/infrastructure/metrics"
)

// noopAuditRecorder is used when no audit store is configured; Record is a
// no-op so the query path never depends on a database being reachable.
type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, domain.AuditEntry) error { return nil }

// Server holds everything one running instance needs: the address to
// listen on, the root nameserver to start iteration from, and the
// collaborators (logger, audit store) that surround the core codec and
// resolver.
type Server struct {
	Addr            string
	RootNS          string
	UpstreamTimeout time.Duration
	Logger          *slog.Logger
	Audit           ports.AuditRecorder

	queryFn queryFn
}

// NewServer returns a Server ready to Run, with RootServer as its root
// nameserver and a no-op audit recorder unless the caller sets Audit
// afterward.
func NewServer(addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		Addr:            addr,
		RootNS:          RootServer,
		UpstreamTimeout: 5 * time.Second,
		Logger:          logger,
		Audit:           noopAuditRecorder{},
	}
	s.queryFn = s.sendQuery
	return s
}

// Run binds a UDP socket at s.Addr and serves requests forever, one at a
// time. It returns only on a bind failure; per-request errors are logged
// and serving continues.
func (s *Server) Run() error {
	conn, err := net.ListenPacket("udp", s.Addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.Logger.Info("resolver listening", "addr", s.Addr, "root_ns", s.RootNS)

	buf := make([]byte, packet.PacketSize)
	for {
		n, clientAddr, err := conn.ReadFrom(buf)
		if err != nil {
			s.Logger.Error("read from client failed", "error", err)
			continue
		}
		data := make([]byte, n)
		copy(data, buf[:n])

		if err := s.handleQuery(conn, clientAddr, data); err != nil {
			s.Logger.Error("handle query failed", "client", clientAddr, "error", err)
		}
	}
}

// handleQuery performs one full request/response transaction: parse,
// resolve, build the response, and send it to the client that asked — all
// before this call returns, which is what makes the server's cooperative
// single-threaded model correct.
func (s *Server) handleQuery(conn ports.PacketConn, clientAddr net.Addr, reqData []byte) error {
	start := time.Now()

	req, err := packet.Decode(packet.Load(reqData))
	if err != nil {
		return err
	}

	resp := packet.NewMessage()
	resp.Header.ID = req.Header.ID
	resp.Header.RecursionDesired = true
	resp.Header.RecursionAvailable = true
	resp.Header.Response = true

	var qname, qtypeLabel, upstreamNS string

	if len(req.Questions) == 0 {
		resp.Header.ResCode = packet.ResultCodeFormErr
	} else {
		q := req.Questions[len(req.Questions)-1]
		resp.Questions = append(resp.Questions, q)
		qname, qtypeLabel = q.Name, q.QType.String()

		result, ns, err := s.recursiveLookup(q.Name, q.QType)
		upstreamNS = ns
		if err != nil {
			resp.Header.ResCode = packet.ResultCodeServFail
		} else {
			resp.Header.ResCode = result.Header.ResCode
			resp.Answers = result.Answers
			resp.Authorities = result.Authorities
			resp.Additionals = result.Additionals
		}
	}

	out := packet.NewBuffer()
	if err := resp.Encode(out); err != nil {
		return err
	}
	if _, err := conn.WriteTo(out.Buf[:out.Position()], clientAddr); err != nil {
		return err
	}

	metrics.QueriesTotal.WithLabelValues(qtypeLabel, resp.Header.ResCode.String()).Inc()
	metrics.QueryDuration.Observe(time.Since(start).Seconds())

	s.recordAudit(domain.AuditEntry{
		QueriedAt:  start,
		ClientAddr: clientAddr.String(),
		QName:      qname,
		QType:      qtypeLabel,
		ResCode:    resp.Header.ResCode.String(),
		UpstreamNS: upstreamNS,
		DurationMS: time.Since(start).Milliseconds(),
	})

	return nil
}

// recordAudit fires the audit recorder best-effort: it runs after the
// response has already been written, and any error is logged and dropped,
// never surfaced to the client.
func (s *Server) recordAudit(entry domain.AuditEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Audit.Record(ctx, entry); err != nil {
		s.Logger.Warn("audit record failed", "error", err)
	}
}
