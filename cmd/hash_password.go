package cmd

import (
	"bufio"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/frahmantamala/safety-hazards/internal/auth"
	"github.com/spf13/cobra"
)

var (
	hashAlgorithm  string
	hashIterations int
)

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Hash a password read from stdin",
	Long:  `Derive a salted PBKDF2 credential for a password read from stdin and print it base64 encoded, for provisioning users by hand.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return errors.New("no password on stdin")
		}
		password := strings.TrimRight(line, "\r\n")
		if password == "" {
			return auth.ErrEmptyPassword
		}

		hasher, err := auth.NewHasher(hashAlgorithm)
		if err != nil {
			return err
		}
		cred, err := hasher.Hash(password, hashIterations)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "algorithm:  %s\n", cred.Algorithm)
		fmt.Fprintf(out, "iterations: %d\n", cred.Iterations)
		fmt.Fprintf(out, "salt:       %s\n", base64.StdEncoding.EncodeToString(cred.Salt))
		fmt.Fprintf(out, "hash:       %s\n", base64.StdEncoding.EncodeToString(cred.Hash))
		return nil
	},
}

func init() {
	hashPasswordCmd.Flags().StringVar(&hashAlgorithm, "algorithm", auth.AlgorithmPBKDF2SHA256, "PBKDF2-SHA1 or PBKDF2-SHA256")
	hashPasswordCmd.Flags().IntVar(&hashIterations, "iterations", auth.DefaultIterations, "PBKDF2 iteration count")
}
