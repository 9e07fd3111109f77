package network

import (
	"errors"
	"testing"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
)

func TestRotatorRoundRobin(t *testing.T) {
	rotator, err := NewRotator([]string{"http://p1:8080", "http://p2:8080"}, time.Minute)
	if err != nil {
		t.Fatalf("NewRotator: %v", err)
	}
	if rotator.Len() != 2 {
		t.Fatalf("Len = %d", rotator.Len())
	}

	var hosts []string
	for i := 0; i < 3; i++ {
		proxy, err := rotator.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		hosts = append(hosts, proxy.Host)
	}
	if hosts[0] != "p1:8080" || hosts[1] != "p2:8080" || hosts[2] != "p1:8080" {
		t.Fatalf("rotation order = %v", hosts)
	}
}

func TestRotatorEmpty(t *testing.T) {
	rotator, err := NewRotator(nil, time.Minute)
	if err != nil {
		t.Fatalf("NewRotator: %v", err)
	}
	if _, err := rotator.Next(); !errors.Is(err, ErrNoProxies) {
		t.Fatalf("error = %v, want ErrNoProxies", err)
	}
}

func TestRotatorBenchesOnQuotaStatuses(t *testing.T) {
	current := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	rotator, err := NewRotator([]string{"http://p1:8080", "http://p2:8080"}, 10*time.Minute)
	if err != nil {
		t.Fatalf("NewRotator: %v", err)
	}
	rotator.now = func() time.Time { return current }

	first, _ := rotator.Next()
	rotator.Report(first, fhttp.StatusOK)
	if proxy, _ := rotator.Next(); proxy.Host != "p2:8080" {
		t.Fatalf("after 200 got %q, want normal rotation", proxy.Host)
	}

	rotator.Report(first, fhttp.StatusTooManyRequests)
	for i := 0; i < 2; i++ {
		proxy, err := rotator.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if proxy.Host == first.Host {
			t.Fatalf("benched proxy %q still in rotation", proxy.Host)
		}
	}

	// Past the bench window it returns to rotation.
	current = current.Add(11 * time.Minute)
	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		proxy, _ := rotator.Next()
		seen[proxy.Host] = true
	}
	if !seen[first.Host] {
		t.Fatalf("proxy %q did not return after bench window", first.Host)
	}
}

func TestRotatorAllBenched(t *testing.T) {
	rotator, err := NewRotator([]string{"http://p1:8080"}, 10*time.Minute)
	if err != nil {
		t.Fatalf("NewRotator: %v", err)
	}

	proxy, _ := rotator.Next()
	rotator.Report(proxy, fhttp.StatusForbidden)
	if _, err := rotator.Next(); !errors.Is(err, ErrNoProxies) {
		t.Fatalf("error = %v, want ErrNoProxies when all benched", err)
	}
}
