package httputil

import (
	"net/http"
	"net/url"
	"time"

	"avitowatch/config"
)

// Clients separates egress paths: target-site traffic goes through the
// configured proxy, API traffic (Telegram, S3 endpoint probes) goes direct.
type Clients struct {
	Scraping *http.Client // proxied, for the marketplace
	API      *http.Client // direct, for Telegram Bot API
}

func NewClients(proxyCfg *config.ProxyConfig) *Clients {
	scraping := &http.Client{
		Timeout: 20 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	if proxyCfg.URL != "" {
		if proxyURL, err := url.Parse(proxyCfg.URL); err == nil {
			scraping.Transport = &http.Transport{
				Proxy: http.ProxyURL(proxyURL),
			}
		}
	}

	return &Clients{
		Scraping: scraping,
		API:      &http.Client{Timeout: 30 * time.Second},
	}
}
