package cli

import "net/url"

// maskConnectionString hides credentials before a connection string is printed.
func maskConnectionString(connStr string) string {
	if u, err := url.Parse(connStr); err == nil && u.Scheme != "" && u.Host != "" {
		return u.Redacted()
	}
	if len(connStr) > 20 {
		return connStr[:10] + "..." + connStr[len(connStr)-10:]
	}
	return "***"
}
