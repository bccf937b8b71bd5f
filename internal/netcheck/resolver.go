// Package netcheck provides DNS resolution for the optional reachability
// check. It resolves IPv4 and IPv6 addresses concurrently with retries and
// configurable timeouts, and keeps query counters for the run summary.
package netcheck

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoRecords is returned when no DNS records are found for a hostname.
	ErrNoRecords = fmt.Errorf("no records found")
	// ErrEmptyMsg is returned when the DNS response message is empty.
	ErrEmptyMsg = fmt.Errorf("empty message")
	// ErrEmptyHostname is returned when an empty hostname is provided.
	ErrEmptyHostname = fmt.Errorf("empty hostname")
)

var _defaultServer = "1.1.1.1:53"

var _ Clienter = (*Resolver)(nil)

// Clienter defines the interface for DNS resolution.
type Clienter interface {
	// LookupHost resolves a hostname to IPv4 & IPv6 addresses.
	LookupHost(ctx context.Context, hostname string) ([]net.IPAddr, error)
}

// Exchanger defines the interface for DNS message exchange.
type Exchanger interface {
	ExchangeContext(ctx context.Context, m *dns.Msg, a string) (r *dns.Msg, rtt time.Duration, err error)
}

// Stats holds cumulative lookup counters for a Resolver.
type Stats struct {
	Queries  int64
	Failures int64
}

// Resolver implements Clienter.
type Resolver struct {
	Client  Exchanger
	Timeout time.Duration
	Servers []string
	Retries uint

	mu       sync.Mutex
	queries  atomic.Int64
	failures atomic.Int64
}

// Opt is a function option for configuring the Resolver.
type Opt func(r *Resolver)

// New creates a Resolver with the given timeout and optional configurations.
func New(timeout time.Duration, opts ...Opt) *Resolver {
	res := &Resolver{
		Client: &dns.Client{
			Timeout: timeout,
		},
		Timeout: timeout,
	}

	for _, o := range opts {
		o(res)
	}

	return res
}

// WithServers returns an option to set custom DNS servers.
// If not provided, the default server (1.1.1.1:53) will be used.
func WithServers(servers []string) Opt {
	return func(r *Resolver) {
		r.Servers = servers
	}
}

// WithRetries returns an option to set the per-query retry count.
func WithRetries(n uint) Opt {
	return func(r *Resolver) {
		r.Retries = n
	}
}

// Stats returns a snapshot of the resolver's cumulative counters.
func (r *Resolver) Stats() Stats {
	return Stats{
		Queries:  r.queries.Load(),
		Failures: r.failures.Load(),
	}
}

// LookupHost resolves a hostname to a slice of IP addresses.
// It handles both IPv4 and IPv6 addresses and returns them as net.IPAddr.
// If the hostname is already an IP address, it returns it directly.
// Returns an error if the hostname is empty or if DNS resolution fails.
func (r *Resolver) LookupHost(ctx context.Context, hostname string) ([]net.IPAddr, error) {
	if strings.TrimSpace(hostname) == "" {
		return nil, ErrEmptyHostname
	}

	// if hostname is an IP, return it as is.
	if ip := net.ParseIP(hostname); ip != nil {
		return []net.IPAddr{{IP: ip}}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	return r.lookupIPs(ctx, hostname)
}

// lookupIPs resolves A and AAAA records concurrently.
// It returns every address that succeeded, or an aggregated
// error if *both* queries fail.
func (r *Resolver) lookupIPs(ctx context.Context, host string) ([]net.IPAddr, error) {
	grp, ctx := errgroup.WithContext(ctx)

	var (
		ips  []net.IPAddr
		errs error
	)

	for _, qt := range [...]uint16{dns.TypeA, dns.TypeAAAA} {
		qt := qt

		grp.Go(func() error {
			addrs, err := r.lookup(ctx, host, qt)
			r.mu.Lock()
			defer r.mu.Unlock()

			if err != nil {
				errs = multierr.Append(errs, err) // collect but don't cancel peer
				return nil
			}
			ips = append(ips, addrs...)
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		errs = multierr.Append(errs, err)
	}

	if len(ips) == 0 {
		r.failures.Inc()
		// Both lookups failed – return the aggregated error list.
		return nil, fmt.Errorf("dns lookup for %q: %w", host, errs)
	}
	return ips, nil
}

// lookup resolves qtype (A, AAAA, …) for host and returns the parsed
// IP answers. It retries r.Retries additional times before giving up.
func (r *Resolver) lookup(ctx context.Context, host string, qtype uint16) ([]net.IPAddr, error) {
	var lastErr error
	for attempt := uint(0); attempt <= r.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Fresh request each attempt: ExchangeContext mutates *dns.Msg
		req := &dns.Msg{}
		req.SetQuestion(dns.Fqdn(host), qtype)

		r.queries.Inc()
		resp, _, err := r.Client.ExchangeContext(ctx, req, r.getServer())
		if err != nil {
			lastErr = err
			continue // retry
		}
		if resp == nil {
			return nil, ErrEmptyMsg
		}

		ips, err := parseIPs(resp)
		if err != nil {
			lastErr = err
			continue // retry
		}
		return ips, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("dns lookup failed for %q", host)
	}
	return nil, lastErr
}

// parseIPs parses the DNS response and returns a slice of IPv4 & v6 addresses.
func parseIPs(resp *dns.Msg) ([]net.IPAddr, error) {
	if resp == nil {
		return nil, ErrEmptyMsg
	}

	var ips []net.IPAddr
	for _, rr := range resp.Answer {
		switch record := rr.(type) {
		case *dns.A:
			ips = append(ips, net.IPAddr{IP: record.A})
		case *dns.AAAA:
			ips = append(ips, net.IPAddr{IP: record.AAAA})
		}
	}

	if len(ips) == 0 {
		return nil, ErrNoRecords
	}

	return ips, nil
}

// getServer returns a random server from the configured list.
func (r *Resolver) getServer() string {
	if len(r.Servers) == 0 {
		return _defaultServer
	}

	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(r.Servers))))
	if err != nil {
		// Fall back to first server on error
		return r.Servers[0]
	}

	return r.Servers[n.Int64()]
}
