package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/ethquery/internal/config"
	"github.com/Mohsinsiddi/ethquery/internal/ui"
	"github.com/Mohsinsiddi/ethquery/query"
)

var (
	verifySig     string
	verifyAddress string
)

var signCmd = &cobra.Command{
	Use:   "sign <message>",
	Short: "Sign a message with the connected wallet (personal_sign)",
	Long: `Ask the connected wallet to sign a plaintext message using EIP-191
personal_sign.

Examples:
  ethq sign "hello world"
  ethq sign "login nonce: 12345" --connector keystore`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		message := args[0]

		ctx, cancel := context.WithTimeout(cmd.Context(), config.ConnectTimeout)
		defer cancel()

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		signer, err := query.Signer(s.client)
		if err != nil {
			return fmt.Errorf("%w: run `ethq connect` first", err)
		}

		sig, err := query.SignMessage(ctx, s.client, []byte(message))
		if err != nil {
			return fmt.Errorf("signing failed: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Message Signed", [][2]string{
			{"Signer", ui.Addr(signer.Address().Hex())},
			{"Message", message},
			{"Signature", sig},
		}))
		fmt.Fprintln(cmd.OutOrStdout(), ui.Hint("Verify: ethq verify \""+message+"\" --sig "+sig+" --address "+signer.Address().Hex()))
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <message>",
	Short: "Recover the signer of an EIP-191 signed message",
	Long: `Recover the signer address from a personal_sign signature and, when
--address is given, compare it with the expected signer. Works offline.

Examples:
  ethq verify "hello world" --sig 0x... --address 0x...`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		message := args[0]
		if verifySig == "" {
			return errors.New("--sig is required")
		}

		res := query.VerifyMessage([]byte(message), verifySig)
		if !res.IsValid {
			return errors.New("signature is malformed or does not recover to any address")
		}

		pairs := [][2]string{
			{"Message", message},
			{"Recovered Signer", ui.Addr(res.RecoveredAddress)},
		}
		if verifyAddress != "" {
			if strings.EqualFold(res.RecoveredAddress, verifyAddress) {
				pairs = append(pairs, [2]string{"Match", ui.Success("signer matches")})
			} else {
				pairs = append(pairs,
					[2]string{"Expected", ui.Addr(verifyAddress)},
					[2]string{"Match", ui.Err("signer does NOT match")},
				)
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Signature Verification", pairs))

		if verifyAddress != "" && !strings.EqualFold(res.RecoveredAddress, verifyAddress) {
			return errors.New("signature mismatch")
		}
		return nil
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifySig, "sig", "", "hex signature to verify (required)")
	verifyCmd.Flags().StringVar(&verifyAddress, "address", "", "expected signer address")
}
