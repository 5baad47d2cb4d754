package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var tokenCmd = &cobra.Command{
	Use:   "token [secret]",
	Short: "Generate a trigger token and its bcrypt hash",
	Long: `Generate the bcrypt hash for server.trigger_token_hash. With no
argument a random token is generated and printed alongside the hash.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runToken,
}

func runToken(cmd *cobra.Command, args []string) error {
	var token string
	if len(args) == 1 {
		token = args[0]
	} else {
		buf := make([]byte, 24)
		if _, err := rand.Read(buf); err != nil {
			return fmt.Errorf("failed to generate token: %w", err)
		}
		token = base64.RawURLEncoding.EncodeToString(buf)
		fmt.Printf("Token: %s\n", token)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash token: %w", err)
	}

	fmt.Printf("Hash:  %s\n", string(hash))
	fmt.Println("Set server.trigger_token_hash to the hash above.")
	return nil
}
