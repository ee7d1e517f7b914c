package instance

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePrefersEnv(t *testing.T) {
	got := resolve(
		func(string) string { return "api-7" },
		func() (string, error) { return "host", nil },
	)
	require.Equal(t, "api-7", got)
}

func TestResolveFallsBackToHostname(t *testing.T) {
	got := resolve(
		func(string) string { return "" },
		func() (string, error) { return "pod-a", nil },
	)
	require.True(t, strings.HasPrefix(got, "pod-a-"))
	require.Len(t, got, len("pod-a-")+8)
}

func TestResolveWithoutHostname(t *testing.T) {
	got := resolve(
		func(string) string { return "" },
		func() (string, error) { return "", errors.New("no host") },
	)
	require.True(t, strings.HasPrefix(got, "bidmart-"))
}

func TestGetIDIsStable(t *testing.T) {
	require.Equal(t, GetID(), GetID())
}
