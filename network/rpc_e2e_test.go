//go:build e2e

package network

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func regtestClient() *RPCClient {
	return NewRPCClient(NetworkPresets["regtest"])
}

func skipIfUnavailable(t *testing.T, client *RPCClient) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := client.GetBestBlockHeight(ctx); err != nil {
		t.Skip("regtest node unavailable:", err)
	}
}

func TestE2E_TipHashIsStable(t *testing.T) {
	client := regtestClient()
	skipIfUnavailable(t, client)
	ctx := context.Background()

	tip, err := client.GetBestBlockHeight(ctx)
	require.NoError(t, err)
	a, err := client.GetBlockHash(ctx, tip)
	require.NoError(t, err)
	b, err := client.GetBlockHash(ctx, tip)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = client.GetBlockHash(ctx, tip+1000)
	assert.ErrorIs(t, err, ErrBlockNotFound)
}
