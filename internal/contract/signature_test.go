package contract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/ethquery/internal/contract"
)

func TestParseSignatures(t *testing.T) {
	parsed, err := contract.ParseSignatures([]string{
		"function balanceOf(address owner) view returns (uint256)",
		"function transfer(address to, uint amount) returns (bool)",
		"setName(string memory name) external",
		"",
		"event Transfer(address indexed from, address indexed to, uint256 value)",
	})
	require.NoError(t, err)

	bal, ok := parsed.Methods["balanceOf"]
	require.True(t, ok)
	assert.True(t, contract.IsRead(bal))
	assert.Equal(t, "balanceOf(address)", bal.Sig)
	require.Len(t, bal.Outputs, 1)
	assert.Equal(t, "uint256", bal.Outputs[0].Type.String())

	transfer := parsed.Methods["transfer"]
	assert.False(t, contract.IsRead(transfer))
	assert.Equal(t, "transfer(address,uint256)", transfer.Sig)

	setName := parsed.Methods["setName"]
	assert.Equal(t, "setName(string)", setName.Sig)
	assert.Equal(t, "name", setName.Inputs[0].Name)

	ev, ok := parsed.Events["Transfer"]
	require.True(t, ok)
	assert.True(t, ev.Inputs[0].Indexed)
	assert.False(t, ev.Inputs[2].Indexed)
}

func TestParseSignaturesMatchesBuiltinSelector(t *testing.T) {
	parsed, err := contract.ParseSignatures([]string{"function approve(address spender, uint256 amount) returns (bool)"})
	require.NoError(t, err)
	b, _ := contract.GetBuiltin("erc20")
	assert.Equal(t, b.ABI.Methods["approve"].ID, parsed.Methods["approve"].ID)
}

func TestParseSignaturesErrors(t *testing.T) {
	for _, line := range []string{
		"function noparens",
		"function bad(address",
		"function swap((address,uint256) route)",
		"function f() returns",
		"function f() frobnicate",
		"function f(address indexed a)",
	} {
		t.Run(line, func(t *testing.T) {
			_, err := contract.ParseSignatures([]string{line})
			assert.ErrorIs(t, err, contract.ErrInvalidSignature)
		})
	}
}

func TestParseABIInvalid(t *testing.T) {
	_, err := contract.ParseABI([]byte("not json"))
	assert.Error(t, err)
}
