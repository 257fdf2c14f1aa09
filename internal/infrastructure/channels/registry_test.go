package channels

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orderhub/backend/internal/domain/channel"
	"github.com/orderhub/backend/internal/infrastructure/config"
)

func TestRegistryCoversAllChannels(t *testing.T) {
	registry := NewRegistry(&config.ChannelsConfig{DemoMode: true}, &config.SyncConfig{
		ChannelTimeout: 5 * time.Second,
	}, zap.NewNop())

	for _, code := range channel.AllCodes() {
		adapter, err := registry.Get(code)
		require.NoError(t, err, code)
		assert.Equal(t, code, adapter.Code())
	}

	adapters := registry.List()
	require.Len(t, adapters, len(channel.AllCodes()))
	for i, code := range channel.AllCodes() {
		assert.Equal(t, code, adapters[i].Code())
	}
}

func TestRegistryUnknownChannel(t *testing.T) {
	registry := NewRegistryWithAdapters()

	_, err := registry.Get(channel.Code("walmart"))
	assert.ErrorIs(t, err, channel.ErrUnknownChannel)
}

func TestRegistryListIsACopy(t *testing.T) {
	registry := NewRegistry(&config.ChannelsConfig{DemoMode: true}, &config.SyncConfig{
		ChannelTimeout: time.Second,
	}, zap.NewNop())

	list := registry.List()
	list[0] = nil

	again := registry.List()
	require.NotNil(t, again[0])
}
