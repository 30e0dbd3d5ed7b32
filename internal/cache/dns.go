package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/transitboard/transitboard/internal/deferred"
)

const DNSValidity = 600 * time.Second

var ErrNoAddresses = errors.New("no addresses found")

// Runner runs blocking work off the event loop and posts results back to it
type Runner interface {
	Post(fn func()) bool
	Go(name string, fn func())
}

type HostLookup interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// HostResolver resolves hostnames through the cache
type HostResolver struct {
	cache    *Cache
	runner   Runner
	resolver HostLookup
	timeout  time.Duration
}

func NewHostResolver(cache *Cache, runner Runner, resolver HostLookup, timeout time.Duration) *HostResolver {
	return &HostResolver{
		cache:    cache,
		runner:   runner,
		resolver: resolver,
		timeout:  timeout,
	}
}

// Resolve delivers the addresses of host to onResult. Must be called on the loop.
func (r *HostResolver) Resolve(host string, onResult func([]string)) {
	Lookup(r.cache, FeedKey{Type: FeedDNS, SubKey: host}, DNSValidity, func() *deferred.Deferred[[]string] {
		return r.lookup(host)
	}, onResult)
}

func (r *HostResolver) lookup(host string) *deferred.Deferred[[]string] {
	result := deferred.New[[]string]()

	r.runner.Go("dns "+host, func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		addresses, err := r.resolver.LookupHost(ctx, host)
		if err == nil && len(addresses) == 0 {
			err = ErrNoAddresses
		}

		r.runner.Post(func() {
			if err != nil {
				result.Fail(fmt.Errorf("failed to resolve %s: %w", host, err))
				return
			}
			result.Succeed(addresses)
		})
	})

	return result
}
