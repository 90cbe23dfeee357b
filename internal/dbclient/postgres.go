package dbclient

import (
	"fmt"
	"net/url"

	_ "github.com/lib/pq"
)

// buildPostgresDSN normalizes a postgres:// URL for lib/pq, defaulting
// sslmode to disable.
func buildPostgresDSN(location string) (string, error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("parse postgres url: %w", err)
	}
	u.Scheme = "postgres"
	q := u.Query()
	if q.Get("sslmode") == "" {
		q.Set("sslmode", "disable")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
