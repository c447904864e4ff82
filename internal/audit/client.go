package audit

import (
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"
)

// ClientMeta extracts best-effort client metadata from a request: the caller
// IP and a readable summary of the User-Agent header. Both may be empty; an
// entry without client metadata is still valid.
func ClientMeta(r *http.Request) (ip, agent string) {
	if r == nil {
		return "", ""
	}
	ip = r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}
	raw := r.UserAgent()
	if raw == "" {
		return ip, ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		return ip, raw
	}
	var b strings.Builder
	b.WriteString(name)
	if version != "" {
		b.WriteString(" ")
		b.WriteString(version)
	}
	if os := ua.OS(); os != "" {
		b.WriteString(" on ")
		b.WriteString(os)
	}
	if ua.Bot() {
		b.WriteString(" (bot)")
	}
	return ip, b.String()
}
