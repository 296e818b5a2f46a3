package domain

import (
	"net/url"
	"strings"
)

// Source - известное финансовое издание и его уровень доверия
type Source struct {
	Name       string
	URL        string
	TrustLevel TrustLevel
	Category   string // news, regulator, data, blog
}

// только http/https с валидным хостом
func (s *Source) Validate() error {
	if HostOf(s.URL) == "" {
		return ErrInvalidURL
	}
	if !s.TrustLevel.IsValid() {
		return ErrInvalidURL
	}
	return nil
}

func (s *Source) Host() string {
	return HostOf(s.URL)
}

// Matches - ссылка ведет на этот источник или его поддомен
func (s *Source) Matches(rawURL string) bool {
	own := s.Host()
	host := HostOf(rawURL)
	if own == "" || host == "" {
		return false
	}
	return host == own || strings.HasSuffix(host, "."+own)
}

// HostOf - хост без www., пустая строка для невалидных ссылок
func HostOf(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}
