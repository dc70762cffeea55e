package cli

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/bsv-blockchain/go-sdk/transaction/template/p2pkh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/libgacha-go/identity"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "gacha", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"init"}, {"payment", "add"}, {"payment", "remove"}, {"key", "add"},
		{"finalize"}, {"pause"}, {"halt"}, {"transfer-admin"}, {"release-key"},
		{"pull"}, {"settle"}, {"reveal"}, {"show"}, {"history"},
	}
	for _, path := range commands {
		t.Run(fmt.Sprint(path), func(t *testing.T) {
			sub, _, err := cmd.Find(path)
			require.NoError(t, err)
			assert.Equal(t, path[len(path)-1], sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"config", "data-dir", "log-level", "format", "wif", "rpc-url", "metrics-textfile"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
	assert.Equal(t, "text", cmd.PersistentFlags().Lookup("format").DefValue)

	keyAdd, _, err := cmd.Find([]string{"key", "add"})
	require.NoError(t, err)
	assert.NotNil(t, keyAdd.Flags().Lookup("seal-key"))
}

func TestExecute_InvalidFormat(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Execute([]string{"--format", "yaml", "show", "1"}, &stdout, &stderr)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr.String(), "invalid format")
}

// fakeNode answers the JSON-RPC calls the CLI makes.
type fakeNode struct {
	mu         sync.Mutex
	height     uint64
	broadcasts int
}

func (n *fakeNode) setHeight(h uint64) {
	n.mu.Lock()
	n.height = h
	n.mu.Unlock()
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     int64         `json:"id"`
		Method string        `json:"method"`
		Params []interface{} `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	var result interface{}
	switch req.Method {
	case "getblockcount":
		result = n.height
	case "getblockhash":
		h := uint64(req.Params[0].(float64))
		if h > n.height {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"id":    req.ID,
				"error": map[string]interface{}{"code": -8, "message": "Block height out of range"},
			})
			return
		}
		sum := sha256.Sum256([]byte(fmt.Sprintf("block-%d", h)))
		result = hex.EncodeToString(sum[:])
	case "sendrawtransaction":
		n.broadcasts++
		raw, _ := hex.DecodeString(req.Params[0].(string))
		sum := sha256.Sum256(raw)
		result = hex.EncodeToString(sum[:])
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"id": req.ID, "result": result})
}

type cliEnv struct {
	t       *testing.T
	node    *fakeNode
	rpcURL  string
	dataDir string
}

func newCLIEnv(t *testing.T) *cliEnv {
	node := &fakeNode{height: 100}
	srv := httptest.NewServer(node)
	t.Cleanup(srv.Close)
	return &cliEnv{t: t, node: node, rpcURL: srv.URL, dataDir: t.TempDir()}
}

type result struct {
	code int
	resp Response
	raw  json.RawMessage
}

func (e *cliEnv) run(wif string, args ...string) result {
	e.t.Helper()
	full := append([]string{"--format", "json", "--data-dir", e.dataDir, "--rpc-url", e.rpcURL, "--log-level", "error"}, args...)
	if wif != "" {
		full = append(full, "--wif", wif)
	}
	var stdout, stderr bytes.Buffer
	code := Execute(full, &stdout, &stderr)

	var envelope struct {
		Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(e.t, json.Unmarshal(stdout.Bytes(), &envelope), "args %v stdout %q stderr %q", args, stdout.String(), stderr.String())
	return result{code: code, resp: envelope.Response, raw: envelope.Data}
}

func (e *cliEnv) ok(wif string, args ...string) json.RawMessage {
	e.t.Helper()
	res := e.run(wif, args...)
	require.Equal(e.t, ExitSuccess, res.code, "args %v: %+v", args, res.resp.Error)
	return res.raw
}

func newWIF(t *testing.T) (string, identity.ID) {
	t.Helper()
	priv, err := ec.NewPrivateKey()
	require.NoError(t, err)
	id, err := identity.FromPublicKey(priv.PubKey())
	require.NoError(t, err)
	return priv.Wif(), id
}

// paymentTx builds a raw payment of sats to to, signed by the WIF payer.
func paymentTx(t *testing.T, payerWIF string, to identity.ID, sats uint64) string {
	t.Helper()
	payer, err := ec.PrivateKeyFromWif(payerWIF)
	require.NoError(t, err)
	from, err := script.NewAddressFromPublicKey(payer.PubKey(), true)
	require.NoError(t, err)
	lock, err := p2pkh.Lock(from)
	require.NoError(t, err)
	unlocker, err := p2pkh.Unlock(payer, nil)
	require.NoError(t, err)

	addr, err := to.Address(true)
	require.NoError(t, err)
	tx := transaction.NewTransaction()
	tx.AddInput(&transaction.TransactionInput{
		SourceTXID:              &chainhash.Hash{byte(sats)},
		SequenceNumber:          0xffffffff,
		UnlockingScriptTemplate: unlocker,
	})
	tx.Inputs[0].SetSourceTxOutput(&transaction.TransactionOutput{Satoshis: sats + 1000, LockingScript: lock})
	require.NoError(t, tx.PayToAddress(addr, sats))
	require.NoError(t, tx.Sign())
	return hex.EncodeToString(tx.Bytes())
}

func TestCLI_SealedPoolLifecycle(t *testing.T) {
	env := newCLIEnv(t)
	adminWIF, adminID := newWIF(t)
	playerWIF, _ := newWIF(t)
	sealKey := hex.EncodeToString(bytes.Repeat([]byte{0x11}, 32))

	var created statusView
	require.NoError(t, json.Unmarshal(env.ok(adminWIF, "init"), &created))
	assert.EqualValues(t, 1, created.Pool)

	env.ok(adminWIF, "payment", "add", "1", "--price", "1000", "--recipient", adminID.String())
	env.ok(adminWIF, "key", "add", "1", "GOLD", "SILVER", "--seal-key", sealKey)

	res := env.run(playerWIF, "pause", "1")
	assert.Equal(t, ExitFailure, res.code)
	require.NotNil(t, res.resp.Error)
	assert.Equal(t, "Unauthorized", res.resp.Error.Code)

	env.ok(adminWIF, "finalize", "1")

	res = env.run(playerWIF, "pull", "1", "--proof", paymentTx(t, adminWIF, adminID, 1000))
	assert.Equal(t, ExitFailure, res.code, "proof signed by someone else")
	require.NotNil(t, res.resp.Error)
	assert.Equal(t, "AccountMismatch", res.resp.Error.Code)

	env.ok(playerWIF, "pull", "1", "--proof", paymentTx(t, playerWIF, adminID, 1000))
	env.ok(playerWIF, "pull", "1", "--proof", paymentTx(t, playerWIF, adminID, 1001))
	assert.Equal(t, 2, env.node.broadcasts)

	res = env.run(playerWIF, "settle", "1", "0")
	assert.Equal(t, ExitPending, res.code)

	env.node.setHeight(106)
	env.ok(playerWIF, "settle", "1", "0")
	env.ok(playerWIF, "settle", "1", "1")

	res = env.run(playerWIF, "reveal", "1", "0")
	assert.Equal(t, ExitFailure, res.code)

	env.ok(adminWIF, "release-key", "1", sealKey)

	var rewards []string
	for _, nonce := range []string{"0", "1"} {
		var v revealView
		require.NoError(t, json.Unmarshal(env.ok("", "reveal", "1", nonce), &v))
		rewards = append(rewards, v.Reward)
	}
	sort.Strings(rewards)
	assert.Equal(t, []string{"GOLD", "SILVER"}, rewards)

	var pool poolView
	require.NoError(t, json.Unmarshal(env.ok("", "show", "1"), &pool))
	assert.True(t, pool.Finalized)
	assert.Equal(t, 0, pool.Remaining)
	assert.EqualValues(t, 2, pool.Settles)
	assert.Equal(t, sealKey, pool.DecryptionKey)
	require.Len(t, pool.PaymentConfigs, 1)
	assert.Equal(t, uint64(1000), pool.PaymentConfigs[0].Price)

	var results []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.ok("", "history", "1", "--kind", "GachaResult"), &results))
	assert.Len(t, results, 2)
}

func TestCLI_Errors(t *testing.T) {
	env := newCLIEnv(t)
	adminWIF, _ := newWIF(t)

	tests := []struct {
		name string
		wif  string
		args []string
		code int
	}{
		{"missing_wif", "", []string{"init"}, ExitCommandError},
		{"bad_pool_id", adminWIF, []string{"finalize", "zero"}, ExitCommandError},
		{"unknown_pool", adminWIF, []string{"finalize", "7"}, ExitFailure},
		{"show_unknown_pool", "", []string{"show", "7"}, ExitFailure},
		{"bad_method", adminWIF, []string{"payment", "add", "1", "--method", "gold", "--recipient", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"}, ExitCommandError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := env.run(tc.wif, tc.args...)
			assert.Equal(t, tc.code, res.code)
			assert.Equal(t, "error", res.resp.Status)
		})
	}
}
