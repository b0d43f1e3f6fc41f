package wallet

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well-known Hardhat/Anvil test account #0. Never fund on mainnet.
const (
	testPrivKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testSignerAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

// testKeystore returns a file-backed Keystore isolated to a temp directory.
// Using the FileBackend avoids OS keychain prompts in CI.
func testKeystore(t *testing.T) *Keystore {
	t.Helper()
	ring, err := keyring.Open(keyring.Config{
		ServiceName:      "ethq-test",
		AllowedBackends:  []keyring.BackendType{keyring.FileBackend},
		FileDir:          t.TempDir(),
		FilePasswordFunc: keyring.FixedStringPrompt("testpass"),
	})
	require.NoError(t, err)
	return NewKeystore(ring)
}

func TestKeystoreStoreRetrieveDelete(t *testing.T) {
	ks := testKeystore(t)

	ref, err := ks.Store("alice", "0x"+testPrivKeyHex)
	require.NoError(t, err)
	assert.Equal(t, "ethq.alice", ref)

	got, err := ks.Retrieve(ref)
	require.NoError(t, err)
	assert.Equal(t, testPrivKeyHex, got, "keys are stored without prefix")

	require.NoError(t, ks.Delete(ref))
	_, err = ks.Retrieve(ref)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestKeystoreDeleteMissing(t *testing.T) {
	ks := testKeystore(t)
	assert.NoError(t, ks.Delete("ethq.ghost"))
}

func TestLoadKey(t *testing.T) {
	iks := NewInMemoryKeystore()
	ref, err := iks.Store("signer", testPrivKeyHex)
	require.NoError(t, err)

	key, err := LoadKey(&Wallet{Name: "signer", Type: TypeSigning, KeyRef: ref}, iks)
	require.NoError(t, err)
	require.NotNil(t, key)
}

func TestLoadKeyWatchOnly(t *testing.T) {
	_, err := LoadKey(&Wallet{Name: "watcher", Type: TypeWatchOnly}, NewInMemoryKeystore())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watch-only")
}

func TestLoadKeyMissing(t *testing.T) {
	_, err := LoadKey(&Wallet{Name: "w", Type: TypeSigning, KeyRef: "ethq.missing"}, NewInMemoryKeystore())
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestLoadKeyCorrupt(t *testing.T) {
	iks := NewInMemoryKeystore()
	ref, _ := iks.Store("bad", "zz")

	_, err := LoadKey(&Wallet{Name: "bad", Type: TypeSigning, KeyRef: ref}, iks)
	assert.ErrorIs(t, err, ErrInvalidKey)
}
