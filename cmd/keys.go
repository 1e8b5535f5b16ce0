package cmd

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// newKeysCmd generates the cookie keypair the session layer needs. Block
// key length is configurable because securecookie accepts 16, 24 or 32
// bytes for AES.
func newKeysCmd() *cobra.Command {
	var blockSize int

	c := &cobra.Command{
		Use:   "keys",
		Short: "Generate COOKIE_HASH_KEY and COOKIE_BLOCK_KEY values (base64)",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch blockSize {
			case 16, 24, 32:
			default:
				return fmt.Errorf("block-size must be 16, 24 or 32")
			}

			hash, err := randomKey(32)
			if err != nil {
				return err
			}
			block, err := randomKey(blockSize)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "export COOKIE_HASH_KEY=%s\n", hash)
			fmt.Fprintf(os.Stdout, "export COOKIE_BLOCK_KEY=%s\n", block)
			return nil
		},
	}

	c.Flags().IntVar(&blockSize, "block-size", 32, "AES block key size in bytes (16, 24 or 32)")
	return c
}

func randomKey(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
