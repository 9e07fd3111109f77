package network

import (
	"errors"
	"net/url"
	"sync"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
)

var ErrNoProxies = errors.New("no proxies available")

// Rotator hands out proxies round-robin, temporarily benching any proxy
// that the upstream answered with a key-rejection or rate-limit status.
// Those are the same statuses the search client maps to its quota and
// rate-limit errors, so a benched proxy is one that already burned its
// allowance.
type Rotator struct {
	proxies     []*url.URL
	benchFor    time.Duration
	benchedTill map[string]time.Time
	index       int
	now         func() time.Time
	mu          sync.Mutex
}

func NewRotator(raw []string, benchFor time.Duration) (*Rotator, error) {
	rotator := &Rotator{
		benchFor:    benchFor,
		benchedTill: map[string]time.Time{},
		now:         time.Now,
	}

	for _, proxy := range raw {
		u, err := url.Parse(proxy)
		if err != nil {
			return nil, err
		}
		rotator.proxies = append(rotator.proxies, u)
	}
	return rotator, nil
}

func (r *Rotator) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.proxies)
}

// Next returns the next proxy still in rotation. ErrNoProxies means the
// list is empty or every proxy is currently benched.
func (r *Rotator) Next() (*url.URL, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.proxies) == 0 {
		return nil, ErrNoProxies
	}

	start := r.index
	for {
		proxy := r.proxies[r.index]
		r.index = (r.index + 1) % len(r.proxies)

		if !r.isBenched(proxy) {
			return proxy, nil
		}
		if r.index == start {
			return nil, ErrNoProxies
		}
	}
}

// Report benches a proxy when the upstream rejected it for quota or rate
// limiting. Other statuses leave the proxy in rotation.
func (r *Rotator) Report(proxy *url.URL, status int) {
	if proxy == nil {
		return
	}
	if status != fhttp.StatusForbidden && status != fhttp.StatusTooManyRequests {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.benchedTill[proxy.String()] = r.now().Add(r.benchFor)
}

func (r *Rotator) isBenched(proxy *url.URL) bool {
	till, ok := r.benchedTill[proxy.String()]
	if !ok {
		return false
	}
	if r.now().After(till) {
		delete(r.benchedTill, proxy.String())
		return false
	}
	return true
}
