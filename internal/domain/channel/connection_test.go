package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConnection(t *testing.T) {
	conn, err := NewConnection(CodeEtsy, `{"api_key":"k"}`)
	require.NoError(t, err)
	assert.Equal(t, CodeEtsy, conn.Channel)
	assert.True(t, conn.IsActive)
	assert.NotEqual(t, "", conn.ID.String())
	assert.Nil(t, conn.LastSyncAt)
}

func TestNewConnection_UnknownChannel(t *testing.T) {
	_, err := NewConnection("walmart", "")
	assert.Error(t, err)
}

func TestConnectionSyncBookkeeping(t *testing.T) {
	conn, err := NewConnection(CodeShopify, "")
	require.NoError(t, err)

	conn.RecordSyncSuccess(10)
	conn.RecordSyncSuccess(5)
	assert.Equal(t, int64(15), conn.OrdersSynced)
	assert.Equal(t, SyncOutcomeSuccess, conn.LastSyncStatus)
	assert.Empty(t, conn.LastError)
	require.NotNil(t, conn.LastSyncAt)

	conn.RecordSyncFailure("channel temporarily unavailable")
	assert.Equal(t, SyncOutcomeFailed, conn.LastSyncStatus)
	assert.Equal(t, "channel temporarily unavailable", conn.LastError)
	// A failure does not erase the running total
	assert.Equal(t, int64(15), conn.OrdersSynced)

	// The next success clears the recorded error
	conn.RecordSyncSuccess(1)
	assert.Empty(t, conn.LastError)
	assert.Equal(t, int64(16), conn.OrdersSynced)
}

func TestConnectionDeactivate(t *testing.T) {
	conn, err := NewConnection(CodeAmazon, "secret")
	require.NoError(t, err)

	conn.Deactivate()
	assert.False(t, conn.IsActive)
	assert.Equal(t, "secret", conn.Credentials)
}
