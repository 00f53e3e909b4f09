package netcheck_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prose-pod/pod/internal/pod/netcheck"
)

func TestPodNetworkConfig_DNSRecordChecks(t *testing.T) {
	cfg := netcheck.PodNetworkConfig{ServerDomain: "example.com", PodIPv4: "203.0.113.1", PodHostname: "pod.example.com"}
	checks := cfg.DNSRecordChecks()
	if len(checks) != 3 {
		t.Fatalf("expected 3 checks (A + 2 SRV, no AAAA without ipv6), got %d", len(checks))
	}
	if checks[0].Type != netcheck.RecordA {
		t.Errorf("expected first check to be A record, got %v", checks[0].Type)
	}
}

func TestPodNetworkConfig_PortReachabilityChecks(t *testing.T) {
	cfg := netcheck.PodNetworkConfig{PodHostname: "pod.example.com"}
	checks := cfg.PortReachabilityChecks()
	if len(checks) != 3 {
		t.Fatalf("expected 3 port checks, got %d", len(checks))
	}
	if checks[0].Port != 5222 || checks[1].Port != 5269 || checks[2].Port != 443 {
		t.Errorf("unexpected port ordering: %+v", checks)
	}
}

type fakeProbe struct {
	err error
}

func (f fakeProbe) Handshake(ctx context.Context, addr, domain string, stream netcheck.StreamKind) error {
	return f.err
}

func TestChecker_RunIPConnectivity_MissingOnFailedPrerequisite(t *testing.T) {
	c := netcheck.NewChecker()
	c.Probe = fakeProbe{}
	result := c.RunIPConnectivity(context.Background(), netcheck.IPConnectivityCheck{
		Prerequisite: func() bool { return false },
	})
	if result.Status != netcheck.IPMissing {
		t.Errorf("expected IPMissing when prerequisite unmet, got %v", result.Status)
	}
}

func TestChecker_RunIPConnectivity_FailurePropagates(t *testing.T) {
	c := netcheck.NewChecker()
	c.Probe = fakeProbe{err: errors.New("connection refused")}
	result := c.RunIPConnectivity(context.Background(), netcheck.IPConnectivityCheck{
		Hostname: "pod.example.com", Port: 5222,
	})
	if result.Status != netcheck.IPFailure {
		t.Errorf("expected IPFailure, got %v", result.Status)
	}
}

func TestChecker_RunIPConnectivity_Success(t *testing.T) {
	c := netcheck.NewChecker()
	c.Probe = fakeProbe{}
	result := c.RunIPConnectivity(context.Background(), netcheck.IPConnectivityCheck{
		Hostname: "pod.example.com", Port: 5222,
	})
	if result.Status != netcheck.IPSuccess {
		t.Errorf("expected IPSuccess, got %v", result.Status)
	}
}
