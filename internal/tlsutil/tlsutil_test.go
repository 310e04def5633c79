package tlsutil

import (
	"crypto/tls"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTLSConfig(t *testing.T) {
	cfg := DefaultTLSConfig()
	require.NotNil(t, cfg)
	assert.EqualValues(t, tls.VersionTLS12, cfg.MinVersion)
	assert.NotEmpty(t, cfg.CipherSuites)
}

func TestSecureHTTPClient(t *testing.T) {
	client := SecureHTTPClient(5 * time.Second)
	require.NotNil(t, client)
	assert.Equal(t, 5*time.Second, client.Timeout)

	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	require.NotNil(t, transport.TLSClientConfig)
	assert.EqualValues(t, tls.VersionTLS12, transport.TLSClientConfig.MinVersion)
	assert.True(t, transport.ForceAttemptHTTP2)
}
