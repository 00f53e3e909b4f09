package netcheck

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

// Checker performs the actual DNS/TCP/XMPP I/O a check definition
// describes. Production code uses *net.Resolver and net.Dialer;
// XMPPProbe is a narrow interface so the handshake step can be faked in
// tests without opening a real socket.
type Checker struct {
	Resolver *net.Resolver
	Dialer   net.Dialer
	Probe    XMPPProbe
}

// XMPPProbe performs a minimal XMPP stream handshake and reports
// whether the server responded with an opening <stream:stream> tag.
type XMPPProbe interface {
	Handshake(ctx context.Context, addr string, domain string, stream StreamKind) error
}

func NewChecker() *Checker {
	return &Checker{Resolver: net.DefaultResolver, Dialer: net.Dialer{Timeout: 5 * time.Second}, Probe: tcpXMPPProbe{}}
}

// RunDNS resolves check.Hostname per its record type and compares
// against the expected values.
func (c *Checker) RunDNS(ctx context.Context, check DNSRecordCheck) DNSResult {
	switch check.Type {
	case RecordA, RecordAAAA:
		ips, err := c.Resolver.LookupHost(ctx, check.Hostname)
		if err != nil {
			return DNSResult{Status: DNSError, Err: err}
		}
		return compareRecords(ips, check.Expected)
	case RecordSRVC2S, RecordSRVS2S:
		_, srvs, err := c.Resolver.LookupSRV(ctx, "", "", check.Hostname)
		if err != nil {
			return DNSResult{Status: DNSError, Err: err}
		}
		var found []string
		for _, s := range srvs {
			found = append(found, fmt.Sprintf("%s:%d", strings.TrimSuffix(s.Target, "."), s.Port))
		}
		return compareRecords(found, check.Expected)
	default:
		return DNSResult{Status: DNSError, Err: fmt.Errorf("netcheck: unknown record type %q", check.Type)}
	}
}

func compareRecords(found, expected []string) DNSResult {
	if len(found) == 0 {
		return DNSResult{Status: DNSInvalid, Found: found}
	}
	matchedAll := true
	for _, e := range expected {
		matched := false
		for _, f := range found {
			if f == e {
				matched = true
				break
			}
		}
		if !matched {
			matchedAll = false
		}
	}
	if matchedAll {
		return DNSResult{Status: DNSValid, Found: found}
	}
	return DNSResult{Status: DNSPartiallyValid, Found: found}
}

// RunPort attempts a TCP connect to check.Hostname:check.Port.
func (c *Checker) RunPort(ctx context.Context, check PortReachabilityCheck) PortResult {
	addr := fmt.Sprintf("%s:%d", check.Hostname, check.Port)
	conn, err := c.Dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return PortResult{Status: PortClosed, Err: err}
	}
	conn.Close()
	return PortResult{Status: PortOpen}
}

// RunIPConnectivity performs the handshake check, short-circuiting to
// IPMissing if the prerequisite is unmet.
func (c *Checker) RunIPConnectivity(ctx context.Context, check IPConnectivityCheck) IPConnectivityResult {
	if check.Prerequisite != nil && !check.Prerequisite() {
		return IPConnectivityResult{Status: IPMissing}
	}
	addr := fmt.Sprintf("%s:%d", check.Hostname, check.Port)
	if err := c.Probe.Handshake(ctx, addr, check.Domain, check.Stream); err != nil {
		return IPConnectivityResult{Status: IPFailure, Err: err}
	}
	return IPConnectivityResult{Status: IPSuccess}
}

// tcpXMPPProbe opens a raw TCP connection and sends a minimal
// <stream:stream> open tag, considering the handshake successful if the
// server responds with its own opening stream tag before the context
// deadline.
type tcpXMPPProbe struct{}

func (tcpXMPPProbe) Handshake(ctx context.Context, addr, domain string, stream StreamKind) error {
	dialer := net.Dialer{Timeout: 5 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("netcheck: dial %s: %w", addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Now().Add(10 * time.Second))
	}

	namespace := "jabber:client"
	if stream == StreamS2S {
		namespace = "jabber:server"
	}
	open := fmt.Sprintf(
		"<?xml version='1.0'?><stream:stream to='%s' xmlns='%s' xmlns:stream='http://etherx.jabber.org/streams' version='1.0'>",
		domain, namespace,
	)
	if _, err := conn.Write([]byte(open)); err != nil {
		return fmt.Errorf("netcheck: write stream open: %w", err)
	}

	reader := bufio.NewReader(conn)
	buf := make([]byte, 512)
	n, err := reader.Read(buf)
	if err != nil {
		return fmt.Errorf("netcheck: read stream response: %w", err)
	}
	if !strings.Contains(string(buf[:n]), "<stream:stream") {
		return fmt.Errorf("netcheck: unexpected response, no opening stream tag")
	}
	return nil
}
