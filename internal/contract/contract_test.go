package contract_test

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/ethquery/connector"
	"github.com/Mohsinsiddi/ethquery/internal/contract"
)

const (
	tokenAddr = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	holder    = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"
)

type fakeCaller struct {
	msg ethereum.CallMsg
	out []byte
	err error
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.msg = msg
	return f.out, f.err
}

type fakeTransactor struct {
	sent []connector.TxRequest
	hash common.Hash
	err  error
}

func (f *fakeTransactor) SendTransaction(_ context.Context, tx connector.TxRequest) (common.Hash, error) {
	f.sent = append(f.sent, tx)
	return f.hash, f.err
}

type fakeReceipts struct {
	calls   atomic.Int32
	minedAt int32
	status  uint64
	err     error
}

func (f *fakeReceipts) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	n := f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	if n < f.minedAt {
		return nil, ethereum.NotFound
	}
	return &types.Receipt{TxHash: hash, Status: f.status, BlockNumber: big.NewInt(7)}, nil
}

func erc20(t *testing.T) *contract.Contract {
	t.Helper()
	b, ok := contract.GetBuiltin("erc20")
	require.True(t, ok)
	c, err := contract.New(tokenAddr, b.ABI)
	require.NoError(t, err)
	return c
}

func TestNewRejectsBadAddress(t *testing.T) {
	b, _ := contract.GetBuiltin("erc20")
	_, err := contract.New("0x1234", b.ABI)
	assert.ErrorIs(t, err, contract.ErrInvalidArgument)
}

func TestReadBalanceOf(t *testing.T) {
	c := erc20(t)
	m, err := c.Method("balanceOf")
	require.NoError(t, err)
	out, err := m.Outputs.Pack(big.NewInt(42))
	require.NoError(t, err)

	caller := &fakeCaller{out: out}
	values, err := c.Read(context.Background(), caller, common.HexToAddress(holder), "balanceOf", holder)
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, "42", contract.FormatValue(values[0]))

	assert.Equal(t, common.HexToAddress(tokenAddr), *caller.msg.To)
	assert.Equal(t, common.HexToAddress(holder), caller.msg.From)
	assert.Equal(t, "70a08231", common.Bytes2Hex(caller.msg.Data[:4]))
}

func TestReadRejectsWriteFunction(t *testing.T) {
	c := erc20(t)
	_, err := c.Read(context.Background(), &fakeCaller{}, common.Address{}, "transfer", holder, "1")
	assert.ErrorIs(t, err, contract.ErrNotReadFunction)
}

func TestReadUnknownMethod(t *testing.T) {
	c := erc20(t)
	_, err := c.Read(context.Background(), &fakeCaller{}, common.Address{}, "mint")
	assert.ErrorIs(t, err, contract.ErrMethodNotFound)
}

func TestReadPropagatesCallError(t *testing.T) {
	c := erc20(t)
	boom := errors.New("execution reverted")
	_, err := c.Read(context.Background(), &fakeCaller{err: boom}, common.Address{}, "totalSupply")
	assert.ErrorIs(t, err, boom)
}

func TestReadWrongArgCount(t *testing.T) {
	c := erc20(t)
	_, err := c.Read(context.Background(), &fakeCaller{}, common.Address{}, "balanceOf")
	assert.ErrorIs(t, err, contract.ErrInvalidArgument)
}

func TestWriteTransfer(t *testing.T) {
	c := erc20(t)
	want := common.HexToHash("0xabc")
	tx := &fakeTransactor{hash: want}

	hash, err := c.Write(context.Background(), tx, nil, "transfer", holder, "1000")
	require.NoError(t, err)
	assert.Equal(t, want, hash)

	require.Len(t, tx.sent, 1)
	assert.Equal(t, common.HexToAddress(tokenAddr), *tx.sent[0].To)
	assert.Equal(t, "a9059cbb", common.Bytes2Hex(tx.sent[0].Data[:4]))
	assert.Len(t, tx.sent[0].Data, 4+32+32)
}

func TestWriteRejectsReadFunction(t *testing.T) {
	c := erc20(t)
	tx := &fakeTransactor{}
	_, err := c.Write(context.Background(), tx, nil, "balanceOf", holder)
	assert.ErrorIs(t, err, contract.ErrNotWriteFunction)
	assert.Empty(t, tx.sent)
}

func TestWriteRejectsValueOnNonPayable(t *testing.T) {
	c := erc20(t)
	_, err := c.Write(context.Background(), &fakeTransactor{}, big.NewInt(1), "transfer", holder, "1")
	assert.ErrorIs(t, err, contract.ErrNotPayable)
}

func TestWritePayable(t *testing.T) {
	parsed, err := contract.ParseSignatures([]string{"function deposit() payable"})
	require.NoError(t, err)
	c, err := contract.New(tokenAddr, parsed)
	require.NoError(t, err)

	tx := &fakeTransactor{}
	_, err = c.Write(context.Background(), tx, big.NewInt(5), "deposit")
	require.NoError(t, err)
	require.Len(t, tx.sent, 1)
	assert.Equal(t, big.NewInt(5), tx.sent[0].Value)
}

func TestWaitMinedPollsUntilReceipt(t *testing.T) {
	src := &fakeReceipts{minedAt: 3, status: types.ReceiptStatusSuccessful}
	r, err := contract.WaitMined(context.Background(), src, common.HexToHash("0x1"), time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int32(3), src.calls.Load())
	assert.Equal(t, big.NewInt(7), r.BlockNumber)
}

func TestWaitMinedReverted(t *testing.T) {
	src := &fakeReceipts{minedAt: 1, status: types.ReceiptStatusFailed}
	r, err := contract.WaitMined(context.Background(), src, common.HexToHash("0x1"), time.Millisecond)
	assert.ErrorIs(t, err, contract.ErrReverted)
	require.NotNil(t, r)
}

func TestWaitMinedContextCancelled(t *testing.T) {
	src := &fakeReceipts{minedAt: 1 << 30}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := contract.WaitMined(ctx, src, common.HexToHash("0x1"), time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitMinedLookupError(t *testing.T) {
	boom := errors.New("node down")
	_, err := contract.WaitMined(context.Background(), &fakeReceipts{err: boom}, common.HexToHash("0x1"), time.Millisecond)
	assert.ErrorIs(t, err, boom)
}

func TestBuiltinsSorted(t *testing.T) {
	contract.RegisterBuiltin(contract.BuiltinKind{ID: "aaa-test", Name: "first"})
	all := contract.AllBuiltins()
	require.GreaterOrEqual(t, len(all), 2)
	assert.Equal(t, "aaa-test", all[0].ID)

	_, ok := contract.GetBuiltin("no-such-builtin")
	assert.False(t, ok)
}
