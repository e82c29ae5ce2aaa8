package server

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"github.com/sereno-dns/recurdns/internal/dns/packet"
	"github.com/sereno-dns/recurdns/internal/infrastructure/metrics"
)

// RootServer is the bootstrap nameserver address a fresh resolver starts
// iteration from — a.root-servers.net. Exposed as Server.RootNS so an
// operator can point at a different root for testing.
const RootServer = "198.41.0.4"

// queryFn performs one outbound UDP exchange with a single nameserver and
// returns its parsed response. Swappable on Server for tests.
type queryFn func(ns string, qname string, qtype packet.QueryType) (*packet.Message, error)

// recursiveLookup walks the delegation chain starting at s.RootNS until it
// reaches an authoritative answer, an NXDOMAIN, or a referral it cannot
// make progress on. A referral with glue follows the glued address
// directly; a referral without glue resolves the NS host's A record
// first, via a nested call to recursiveLookup itself.
func (s *Server) recursiveLookup(qname string, qtype packet.QueryType) (*packet.Message, string, error) {
	ns := s.RootNS

	for {
		s.Logger.Debug("resolver exchange", "name", qname, "qtype", qtype, "ns", ns)
		metrics.ResolverExchangesTotal.Inc()

		resp, err := s.queryFn(ns, qname, qtype)
		if err != nil {
			metrics.ResolverUpstreamErrorsTotal.WithLabelValues(upstreamErrorReason(err)).Inc()
			s.Logger.Warn("upstream exchange failed", "ns", ns, "error", err)
			return nil, ns, err
		}

		if len(resp.Answers) > 0 && resp.Header.ResCode == packet.ResultCodeNoError {
			return resp, ns, nil
		}
		if resp.Header.ResCode == packet.ResultCodeNxDomain {
			return resp, ns, nil
		}

		if glueAddr, ok := resp.GetResolvedNS(qname); ok {
			ns = glueAddr.String()
			continue
		}

		if nsHost, ok := resp.GetUnresolvedNS(qname); ok {
			sub, _, err := s.recursiveLookup(nsHost, packet.TypeA)
			if err == nil {
				if addr, ok := sub.GetRandomA(); ok {
					ns = addr.String()
					continue
				}
			}
			return resp, ns, nil
		}

		return resp, ns, nil
	}
}

func upstreamErrorReason(err error) string {
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return "timeout"
	}
	return "transport"
}

// generateTransactionID picks a random 16-bit query ID for an outbound
// iterative query. Root and authoritative servers don't consult it for
// anything but echoing it back.
func generateTransactionID() (uint16, error) {
	var raw [2]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(raw[:]), nil
}

// sendQuery performs a single outbound exchange: bind a fresh ephemeral
// UDP socket, send one question, and parse whatever comes back. A new
// socket per call means concurrent iterative queries never collide on a
// shared source port, unlike a resolver that reuses one upstream port for
// every exchange.
func (s *Server) sendQuery(ns string, qname string, qtype packet.QueryType) (*packet.Message, error) {
	conn, err := net.DialTimeout("udp", net.JoinHostPort(ns, "53"), s.UpstreamTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial upstream %s: %w", ns, err)
	}
	defer conn.Close()

	id, err := generateTransactionID()
	if err != nil {
		return nil, err
	}

	req := packet.NewMessage()
	req.Header.ID = id
	req.Header.RecursionDesired = true
	req.Questions = append(req.Questions, packet.Question{Name: qname, QType: qtype})

	out := packet.NewBuffer()
	if err := req.Encode(out); err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	if err := conn.SetDeadline(time.Now().Add(s.UpstreamTimeout)); err != nil {
		return nil, err
	}
	if _, err := conn.Write(out.Buf[:out.Position()]); err != nil {
		return nil, fmt.Errorf("send query: %w", err)
	}

	raw := make([]byte, packet.PacketSize)
	n, err := conn.Read(raw)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	resp, err := packet.Decode(packet.Load(raw[:n]))
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}
