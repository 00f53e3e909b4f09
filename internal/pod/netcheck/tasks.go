package netcheck

import "context"

// CheckEvent is the (check id, description, status) triple the SSE
// layer maps onto a wire event; Status is one of the three result
// types' String() values.
type CheckEvent struct {
	ID          string
	Kind        string // "dns-record-check-result" | "port-reachability-check-result" | "ip-connectivity-check-result"
	Description string
	Status      string
}

// dnsTask, portTask, and ipTask adapt a single check definition plus
// the Checker into a taskrunner.Task[CheckEvent] — each is retryable
// while its result is not yet in a terminal state, matching the
// RetryableNetworkCheckResult flag the spec describes per check type.

type dnsTask struct {
	checker *Checker
	check   DNSRecordCheck
}

func NewDNSTask(checker *Checker, check DNSRecordCheck) *dnsTask { return &dnsTask{checker: checker, check: check} }

func (t *dnsTask) Run(ctx context.Context) CheckEvent {
	result := t.checker.RunDNS(ctx, t.check)
	return CheckEvent{ID: t.check.ID, Kind: "dns-record-check-result", Description: t.check.Description(), Status: result.Status.String()}
}

func (t *dnsTask) Retryable(result CheckEvent) bool {
	return result.Status != DNSValid.String()
}

type portTask struct {
	checker *Checker
	check   PortReachabilityCheck
}

func NewPortTask(checker *Checker, check PortReachabilityCheck) *portTask { return &portTask{checker: checker, check: check} }

func (t *portTask) Run(ctx context.Context) CheckEvent {
	result := t.checker.RunPort(ctx, t.check)
	return CheckEvent{ID: t.check.ID, Kind: "port-reachability-check-result", Description: t.check.Description(), Status: result.Status.String()}
}

func (t *portTask) Retryable(result CheckEvent) bool {
	return result.Status != PortOpen.String()
}

type ipTask struct {
	checker *Checker
	check   IPConnectivityCheck
}

func NewIPTask(checker *Checker, check IPConnectivityCheck) *ipTask { return &ipTask{checker: checker, check: check} }

func (t *ipTask) Run(ctx context.Context) CheckEvent {
	result := t.checker.RunIPConnectivity(ctx, t.check)
	return CheckEvent{ID: t.check.ID, Kind: "ip-connectivity-check-result", Description: t.check.Description(), Status: result.Status.String()}
}

func (t *ipTask) Retryable(result CheckEvent) bool {
	return result.Status == IPFailure.String()
}
