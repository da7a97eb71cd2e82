package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Chia-Network/offer-codes/keys"
)

func newKeyCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Local signing keys (stored under ~/.offer-codes/keys, mode 0600)",
	}
	cmd.PersistentFlags().StringVar(&dir, "key-dir", "", "key directory (default ~/.offer-codes/keys)")
	open := func() (*keys.KeyStore, error) { return keys.OpenKeyStore(dir) }

	var (
		name    string
		seedHex string
		force   bool
	)
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create an ed25519 signing key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if name == "" {
				return usagef("missing --name")
			}
			if err := keys.CheckKeyName(name); err != nil {
				return usagef("invalid --name: %v", err)
			}
			ks, err := open()
			if err != nil {
				return fmt.Errorf("keys: %w", err)
			}
			var seed []byte
			if seedHex != "" {
				if seed, err = keys.ParseSeedHex(seedHex); err != nil {
					return usagef("invalid --seed-hex: %v", err)
				}
			} else {
				seed = make([]byte, ed25519.SeedSize)
				if _, err := rand.Read(seed); err != nil {
					return fmt.Errorf("rand: %w", err)
				}
			}
			pk, path, err := ks.Init(name, seed, force)
			if err != nil {
				return fmt.Errorf("write key: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created key: %s\n", pk)
			fmt.Fprintf(cmd.OutOrStdout(), "Stored at: %s\n", path)
			return nil
		},
	}
	initCmd.Flags().StringVar(&name, "name", "", "key name")
	initCmd.Flags().StringVar(&seedHex, "seed-hex", "", "optional ed25519 seed as 64 hex chars (reproducible demos)")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing key")

	var exportName string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Print the public key to configure as identity.public_key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if exportName == "" {
				return usagef("missing --name")
			}
			ks, err := open()
			if err != nil {
				return fmt.Errorf("keys: %w", err)
			}
			pk, err := ks.Export(exportName)
			if err != nil {
				return fmt.Errorf("export key: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), pk)
			return nil
		},
	}
	exportCmd.Flags().StringVar(&exportName, "name", "", "key name")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ks, err := open()
			if err != nil {
				return fmt.Errorf("keys: %w", err)
			}
			names, err := ks.List()
			if err != nil {
				return fmt.Errorf("list keys: %w", err)
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}

	cmd.AddCommand(initCmd, exportCmd, listCmd)
	return cmd
}
