package utils

import (
	"net/url"
	"strings"
)

// NormalizeLink turns a provider link into something a browser can open.
// Links without a scheme get https, hosts are lowercased. Unusable links
// come back empty.
func NormalizeLink(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}

	if !strings.Contains(link, "://") {
		link = "https://" + link
	}

	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return ""
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}

	u.Host = strings.ToLower(u.Host)

	return u.String()
}

// URLToHostname returns the registrable part of a link's host, e.g.
// "place.map.naver.com" becomes "naver.com".
func URLToHostname(inURL string) string {
	u, err := url.Parse(NormalizeLink(inURL))
	if err != nil || u.Host == "" {
		return ""
	}

	return getTopLevelHostname(u.Hostname())
}

func getTopLevelHostname(hostname string) string {
	return strings.Join(getSlicedHostname(hostname), ".")
}

func getSlicedHostname(hostname string) []string {
	hostname = strings.ToLower(hostname)
	split := strings.Split(hostname, ".")
	if len(split) < 2 {
		return split
	}

	return split[len(split)-2:]
}

// Slug makes a keyword safe to use in a file name.
func Slug(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == ' ' || r == '/' || r == '\\' || r == '.' || r == ':'
	})

	if len(fields) == 0 {
		return "stores"
	}

	return strings.Join(fields, "-")
}
