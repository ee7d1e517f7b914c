package instance

import (
	"os"
	"sync"

	"github.com/google/uuid"
)

// IDEnv overrides the generated instance id.
const IDEnv = "BIDMART_INSTANCE_ID"

var (
	once sync.Once
	id   string
)

// GetID identifies this process in logs and cron lock values. It prefers
// BIDMART_INSTANCE_ID, then the hostname, then a random id, and is stable for
// the life of the process.
func GetID() string {
	once.Do(func() { id = resolve(os.Getenv, os.Hostname) })
	return id
}

func resolve(getenv func(string) string, hostname func() (string, error)) string {
	if v := getenv(IDEnv); v != "" {
		return v
	}
	if host, err := hostname(); err == nil && host != "" {
		return host + "-" + uuid.NewString()[:8]
	}
	return "bidmart-" + uuid.NewString()
}
