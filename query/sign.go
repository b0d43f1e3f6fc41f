package query

import (
	"context"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/Mohsinsiddi/ethquery/client"
	"github.com/Mohsinsiddi/ethquery/internal/wallet"
)

// VerificationResult reports whether a signature recovers to an address.
type VerificationResult struct {
	IsValid          bool
	RecoveredAddress string
}

// SignMessage signs message with the connected account and returns the
// 0x-prefixed signature.
func SignMessage(ctx context.Context, c *client.Client, message []byte) (string, error) {
	signer, err := Signer(c)
	if err != nil {
		return "", err
	}
	sig, err := signer.SignMessage(ctx, message)
	if err != nil {
		return "", err
	}
	return hexutil.Encode(sig), nil
}

// VerifyMessage recovers the signer of an EIP-191 signature. Any failure to
// recover yields an invalid result rather than an error.
func VerifyMessage(message []byte, signature string) VerificationResult {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return VerificationResult{}
	}
	addr, err := wallet.VerifyMessage(message, sig)
	if err != nil {
		return VerificationResult{}
	}
	return VerificationResult{IsValid: true, RecoveredAddress: addr.Hex()}
}
