package inference

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const inferPath = "/infer"

var (
	ErrEmptyURL       = errors.New("inference: empty service url")
	ErrInsecureScheme = errors.New("inference: https is not supported")
	ErrInvalidURL     = errors.New("inference: invalid service url")
)

// Endpoint is a parsed inference service address.
type Endpoint struct {
	Host string
	Port int
	Path string
}

// BaseURL returns the scheme, host and port part.
func (e Endpoint) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", e.Host, e.Port)
}

func (e Endpoint) String() string {
	return e.BaseURL() + e.Path
}

// ParseServiceURL parses "[http://]host[:port][/path]". The path is
// normalized so that it always ends in /infer.
func ParseServiceURL(raw string) (Endpoint, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Endpoint{}, ErrEmptyURL
	}
	if strings.HasPrefix(s, "https://") {
		return Endpoint{}, ErrInsecureScheme
	}
	s = strings.TrimPrefix(s, "http://")

	hostPort, path := s, ""
	if i := strings.IndexByte(s, '/'); i >= 0 {
		hostPort, path = s[:i], s[i:]
	}

	host, port := hostPort, 80
	if i := strings.LastIndexByte(hostPort, ':'); i >= 0 {
		host = hostPort[:i]
		p, err := strconv.Atoi(hostPort[i+1:])
		if err != nil || p < 1 || p > 65535 {
			return Endpoint{}, fmt.Errorf("%w: port %q", ErrInvalidURL, hostPort[i+1:])
		}
		port = p
	}
	if host == "" {
		return Endpoint{}, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	switch {
	case path == "" || path == "/":
		path = inferPath
	case strings.HasSuffix(path, inferPath):
	default:
		path = strings.TrimSuffix(path, "/") + inferPath
	}

	return Endpoint{Host: host, Port: port, Path: path}, nil
}
