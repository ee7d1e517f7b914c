package config

import (
	"strings"

	"google.golang.org/api/option"
)

// ClientOptions picks the credential source for Google Cloud clients. Inline
// JSON wins over a credentials file; with neither, ADC applies.
func (g GCPConfig) ClientOptions() []option.ClientOption {
	if creds := strings.TrimSpace(g.CredentialsJSON); creds != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	if path := strings.TrimSpace(g.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}
