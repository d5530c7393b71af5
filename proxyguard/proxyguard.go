package proxyguard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

var ErrProxyUnreachable = errors.New("proxy egress check failed")

const echoURL = "https://api.ipify.org"

// Guard verifies the upstream proxy actually carries traffic before a scrape
// pass burns a browser session on it. A watcher hammering the marketplace
// from its real IP because the proxy silently died is worse than skipping
// a pass.
type Guard struct {
	client  *http.Client // the proxied scraping client
	enabled bool
}

func New(client *http.Client, proxyURL string) *Guard {
	return &Guard{client: client, enabled: proxyURL != ""}
}

// Verify performs one round trip through the proxy. Always nil when no proxy
// is configured.
func (g *Guard) Verify(ctx context.Context) error {
	if !g.enabled {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, echoURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProxyUnreachable, err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProxyUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrProxyUnreachable, resp.StatusCode)
	}

	ip, _ := io.ReadAll(io.LimitReader(resp.Body, 64))
	log.Printf("Proxy egress OK, exit IP %s", ip)
	return nil
}
