package services

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

var (
	schemePattern     = regexp.MustCompile(`(?i)^https?://`)
	spoofLabelPattern = regexp.MustCompile(`^(w{1,2}|w\d+w)$`)
)

// forbiddenHostChars never appear in a legitimate payment or bank hostname
const forbiddenHostChars = "@%!_"

// URLValidationError explains why a URL was rejected before scoring
type URLValidationError struct {
	Reason string
}

func (e *URLValidationError) Error() string { return e.Reason }

// Unwrap lets callers match with errors.Is(err, ErrInvalidURL)
func (e *URLValidationError) Unwrap() error { return ErrInvalidURL }

func invalidURL(reason string) error {
	return &URLValidationError{Reason: reason}
}

// NormalizedURL is a URL that passed structural validation
type NormalizedURL struct {
	// Domain is the lower-cased hostname with one leading "www." removed
	Domain   string
	CleanURL string
	// Protocol includes the trailing colon, e.g. "https:"
	Protocol string
}

// ValidateAndNormalize rejects malformed or disguised URLs and returns the
// canonical hostname used by the heuristics.
func ValidateAndNormalize(rawURL string) (*NormalizedURL, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, invalidURL("URL is empty")
	}

	if !schemePattern.MatchString(rawURL) {
		return nil, invalidURL("URL must start with http:// or https://")
	}

	if strings.IndexFunc(rawURL, unicode.IsSpace) >= 0 {
		return nil, invalidURL("URL contains whitespace")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, invalidURL("URL could not be parsed")
	}

	hostname := strings.ToLower(parsed.Hostname())
	if hostname == "" {
		return nil, invalidURL("URL has no hostname")
	}

	// url.Parse unescapes %XX in the host, so check the raw authority too
	if strings.ContainsAny(rawAuthority(rawURL), forbiddenHostChars) || strings.ContainsAny(hostname, forbiddenHostChars) {
		return nil, invalidURL("hostname contains forbidden characters (@ % ! _)")
	}

	if strings.Contains(hostname, "--") && !strings.HasPrefix(hostname, "xn--") {
		return nil, invalidURL("hostname contains consecutive hyphens")
	}

	if strings.HasPrefix(hostname, "ww.") {
		return nil, invalidURL("hostname has malformed www prefix")
	}

	labels := strings.Split(hostname, ".")
	if len(labels) > 2 && spoofLabelPattern.MatchString(labels[0]) {
		return nil, invalidURL("hostname has a www look-alike subdomain")
	}

	return &NormalizedURL{
		Domain:   strings.TrimPrefix(hostname, "www."),
		CleanURL: parsed.String(),
		Protocol: strings.ToLower(parsed.Scheme) + ":",
	}, nil
}

// rawAuthority returns the text between "://" and the first path, query or
// fragment delimiter.
func rawAuthority(u string) string {
	i := strings.Index(u, "://")
	if i < 0 {
		return ""
	}
	rest := u[i+3:]
	if end := strings.IndexAny(rest, "/?#"); end >= 0 {
		rest = rest[:end]
	}
	return rest
}
