package portal

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/ubuntu/decorate"
)

// loadCookies parses a Netscape-format cookie file and returns its cookies.
// The file must contain at least one session cookie or authentication is
// known to fail before the first request is made.
func loadCookies(path string) (cookies []*http.Cookie, err error) {
	defer decorate.OnError(&err, "could not load cookies from %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	hasSession := false
	for _, line := range strings.Split(string(data), "\n") {
		// #HttpOnly_ prefixed lines are real cookies, other # lines are comments.
		line = strings.TrimPrefix(line, "#HttpOnly_")
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// domain, include-subdomains, path, secure, expiry, name, value
		fields := strings.Split(line, "\t")
		if len(fields) != 7 {
			return nil, fmt.Errorf("malformed cookie line: %q", line)
		}

		name := fields[5]
		if strings.Contains(strings.ToLower(name), "session") {
			hasSession = true
		}
		cookies = append(cookies, &http.Cookie{Name: name, Value: fields[6]})
	}

	if !hasSession {
		return nil, ErrNoSessionCookie
	}
	return cookies, nil
}
