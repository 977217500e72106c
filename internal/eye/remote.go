package eye

import (
	"fmt"
	"strings"
	"sync"

	"github.com/roach88/atlas/internal/event"
	"github.com/roach88/atlas/internal/ledger"
)

// RemotePolicy governs access to remote resources. The default is
// restrictive: nothing is fetched unless explicitly enabled, and every
// refusal is recorded so the decision is auditable later.
type RemotePolicy struct {
	AllowRemote    bool
	MaxRemoteCalls int
	AllowedHosts   []string

	mu        sync.Mutex
	callsMade int
}

// StrictPolicy denies all remote access.
func StrictPolicy() *RemotePolicy {
	return &RemotePolicy{}
}

// PermissivePolicy allows remote access with a call cap and optional
// host allowlist.
func PermissivePolicy(maxCalls int, hosts []string) *RemotePolicy {
	return &RemotePolicy{
		AllowRemote:    true,
		MaxRemoteCalls: maxCalls,
		AllowedHosts:   hosts,
	}
}

// CanAccess reports whether url may be fetched, with the reason when it
// may not.
func (p *RemotePolicy) CanAccess(url string) (bool, string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.AllowRemote {
		return false, "remote access is disabled by policy"
	}
	if p.MaxRemoteCalls > 0 && p.callsMade >= p.MaxRemoteCalls {
		return false, fmt.Sprintf("remote call limit exceeded: %d/%d", p.callsMade, p.MaxRemoteCalls)
	}
	if len(p.AllowedHosts) > 0 {
		host := extractHost(url)
		allowed := false
		for _, h := range p.AllowedHosts {
			if host == strings.ToLower(h) {
				allowed = true
				break
			}
		}
		if !allowed {
			return false, fmt.Sprintf("host %q not in allowlist", host)
		}
	}
	return true, ""
}

// RecordCall counts one remote call against the limit.
func (p *RemotePolicy) RecordCall() {
	p.mu.Lock()
	p.callsMade++
	p.mu.Unlock()
}

// Decline records a refused lookup in the ledger so the "did not look"
// decision survives alongside the "looked" ones.
func (p *RemotePolicy) Decline(app ledger.Appender, module, url, reason string, opts ...event.Option) error {
	env := event.NewRemoteLookupDeclined(module, url, reason, opts...)
	if _, err := app.Append(env); err != nil {
		return fmt.Errorf("recording declined lookup for %s: %w", url, err)
	}
	return nil
}

func extractHost(url string) string {
	url = strings.ToLower(url)
	if i := strings.Index(url, "://"); i >= 0 {
		url = url[i+3:]
	}
	if i := strings.IndexByte(url, '/'); i >= 0 {
		url = url[:i]
	}
	if i := strings.IndexByte(url, ':'); i >= 0 {
		url = url[:i]
	}
	return url
}
