package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Chia-Network/offer-codes/config"
	"github.com/Chia-Network/offer-codes/offer"
	"github.com/Chia-Network/offer-codes/storage"
	"github.com/Chia-Network/offer-codes/storage/bundle"
	"github.com/Chia-Network/offer-codes/storage/registry"
)

func newBundleCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Export or import offers as a TAR bundle using the configured storage",
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (storage and identity sections)")

	openStore := func(cmd *cobra.Command) (storage.Store, offer.Scheme, func() error, error) {
		cfg, err := config.LoadAndValidate(configPath)
		if err != nil {
			return nil, offer.Scheme{}, nil, err
		}
		scheme, err := cfg.Scheme()
		if err != nil {
			return nil, offer.Scheme{}, nil, err
		}
		st, closeFn, err := cfg.Storage.Open(cmd.Context(), registry.UsageServer, zap.NewNop())
		if err != nil {
			return nil, offer.Scheme{}, nil, fmt.Errorf("open storage: %w", err)
		}
		return st, scheme, closeFn, nil
	}

	var (
		outPath string
		noIndex bool
	)
	exportCmd := &cobra.Command{
		Use:   "export <code>...",
		Short: "Write the offers stored under the given codes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, scheme, closeFn, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			codes := make([]offer.Code, 0, len(args))
			for _, a := range args {
				c, err := scheme.ParseCode(a)
				if err != nil {
					return usagef("invalid code %q: %v", a, err)
				}
				codes = append(codes, c)
			}

			var w io.Writer = cmd.OutOrStdout()
			if outPath != "" && outPath != "-" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return bundle.Export(cmd.Context(), w, st, scheme, codes, bundle.ExportOptions{IncludeIndex: !noIndex})
		},
	}
	exportCmd.Flags().StringVarP(&outPath, "out", "o", "-", "output file")
	exportCmd.Flags().BoolVar(&noIndex, "no-index", false, "omit index.json")

	var ignoreUnknown bool
	importCmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Store every offer in a bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, scheme, closeFn, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			codes, err := bundle.Import(cmd.Context(), r, st, scheme, bundle.ImportOptions{IgnoreUnknown: ignoreUnknown})
			for _, c := range codes {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return err
		},
	}
	importCmd.Flags().BoolVar(&ignoreUnknown, "ignore-unknown", false, "skip entries that are not offers")

	cmd.AddCommand(exportCmd, importCmd)
	return cmd
}
