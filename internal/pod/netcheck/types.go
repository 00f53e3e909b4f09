// Package netcheck implements the pure check definitions and the
// checker that executes them against real DNS/TCP/XMPP infrastructure
// (C9). Scheduling, retries, and streaming belong to taskrunner and sse.
package netcheck

import "fmt"

// DNSRecordType names the DNS record family a check expects to find.
type DNSRecordType string

const (
	RecordA     DNSRecordType = "A"
	RecordAAAA  DNSRecordType = "AAAA"
	RecordSRVC2S DNSRecordType = "SRV-c2s"
	RecordSRVS2S DNSRecordType = "SRV-s2s"
)

// DNSStatus is the outcome of a DNS record check.
type DNSStatus int

const (
	DNSValid DNSStatus = iota
	DNSPartiallyValid
	DNSInvalid
	DNSError
)

func (s DNSStatus) String() string {
	return [...]string{"valid", "partially_valid", "invalid", "error"}[s]
}

// DNSResult is the outcome of running a DNSRecordCheck.
type DNSResult struct {
	Status DNSStatus
	// Found holds the actual records observed, present for PartiallyValid
	// and useful for debugging Invalid.
	Found []string
	Err   error
}

// DNSRecordCheck is one expected-record assertion.
type DNSRecordCheck struct {
	ID       string
	Type     DNSRecordType
	Hostname string
	Expected []string // expected values (IPs for A/AAAA, target:port for SRV)
}

func (c DNSRecordCheck) Description() string {
	return fmt.Sprintf("%s record for %s", c.Type, c.Hostname)
}

// PortStatus is the outcome of a port reachability check.
type PortStatus int

const (
	PortOpen PortStatus = iota
	PortClosed
)

func (s PortStatus) String() string {
	if s == PortOpen {
		return "open"
	}
	return "closed"
}

// PortResult is the outcome of running a PortReachabilityCheck.
type PortResult struct {
	Status PortStatus
	Err    error
}

// PortReachabilityCheck is a single TCP-connect probe.
type PortReachabilityCheck struct {
	ID       string
	Hostname string
	Port     int
}

func (c PortReachabilityCheck) Description() string {
	return fmt.Sprintf("TCP connect to %s:%d", c.Hostname, c.Port)
}

// IPConnectivityStatus is the outcome of an end-to-end XMPP handshake
// check.
type IPConnectivityStatus int

const (
	IPSuccess IPConnectivityStatus = iota
	IPFailure
	// IPMissing is returned when the prerequisite DNS record or open port
	// this check depends on is absent, so the handshake was never
	// attempted.
	IPMissing
)

func (s IPConnectivityStatus) String() string {
	return [...]string{"success", "failure", "missing"}[s]
}

// IPConnectivityResult is the outcome of running an IPConnectivityCheck.
type IPConnectivityResult struct {
	Status IPConnectivityStatus
	Err    error
}

// StreamKind selects which of c2s/s2s the handshake check targets.
type StreamKind string

const (
	StreamC2S StreamKind = "c2s"
	StreamS2S StreamKind = "s2s"
)

// IPConnectivityCheck performs a minimal XMPP stream handshake over a
// specific IP family and stream kind.
type IPConnectivityCheck struct {
	ID         string
	Domain     string
	Hostname   string
	Port       int
	Stream     StreamKind
	// Prerequisite, when non-nil, must be Open/Valid for this check to
	// run at all; otherwise the result is IPMissing without dialing.
	Prerequisite func() bool
}

func (c IPConnectivityCheck) Description() string {
	return fmt.Sprintf("%s handshake to %s:%d", c.Stream, c.Hostname, c.Port)
}

// PodNetworkConfig is the pure, side-effect-free source of check
// definitions; nothing in this type performs I/O.
type PodNetworkConfig struct {
	ServerDomain string
	PodIPv4      string
	PodIPv6      string
	PodHostname  string
}

// DNSRecordChecks returns the expected A, AAAA, SRV-c2s, SRV-s2s checks
// derived from the configured server domain and pod address.
func (c PodNetworkConfig) DNSRecordChecks() []DNSRecordCheck {
	var checks []DNSRecordCheck
	if c.PodIPv4 != "" {
		checks = append(checks, DNSRecordCheck{ID: "dns-a", Type: RecordA, Hostname: c.ServerDomain, Expected: []string{c.PodIPv4}})
	}
	if c.PodIPv6 != "" {
		checks = append(checks, DNSRecordCheck{ID: "dns-aaaa", Type: RecordAAAA, Hostname: c.ServerDomain, Expected: []string{c.PodIPv6}})
	}
	checks = append(checks,
		DNSRecordCheck{ID: "dns-srv-c2s", Type: RecordSRVC2S, Hostname: "_xmpp-client._tcp." + c.ServerDomain,
			Expected: []string{fmt.Sprintf("%s:5222", c.PodHostname)}},
		DNSRecordCheck{ID: "dns-srv-s2s", Type: RecordSRVS2S, Hostname: "_xmpp-server._tcp." + c.ServerDomain,
			Expected: []string{fmt.Sprintf("%s:5269", c.PodHostname)}},
	)
	return checks
}

// PortReachabilityChecks returns the c2s/s2s/https port checks.
func (c PodNetworkConfig) PortReachabilityChecks() []PortReachabilityCheck {
	return []PortReachabilityCheck{
		{ID: "port-c2s", Hostname: c.PodHostname, Port: 5222},
		{ID: "port-s2s", Hostname: c.PodHostname, Port: 5269},
		{ID: "port-https", Hostname: c.PodHostname, Port: 443},
	}
}

// IPConnectivityChecks returns the full handshake checks across
// v4/v6 × c2s/s2s, each depending on its prerequisite DNS/port check
// having already been resolved by the caller (wired via Prerequisite).
func (c PodNetworkConfig) IPConnectivityChecks() []IPConnectivityCheck {
	var checks []IPConnectivityCheck
	for _, stream := range []StreamKind{StreamC2S, StreamS2S} {
		port := 5222
		if stream == StreamS2S {
			port = 5269
		}
		checks = append(checks, IPConnectivityCheck{
			ID: fmt.Sprintf("ip-%s", stream), Domain: c.ServerDomain, Hostname: c.PodHostname, Port: port, Stream: stream,
		})
	}
	return checks
}
