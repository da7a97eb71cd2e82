package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Chia-Network/offer-codes/cidutil"
	"github.com/Chia-Network/offer-codes/client"
	"github.com/Chia-Network/offer-codes/codec"
	"github.com/Chia-Network/offer-codes/keys"
	"github.com/Chia-Network/offer-codes/offer"
	"github.com/Chia-Network/offer-codes/storage/registry"
)

// exitNotFound is returned by fetch for an unknown code.
const exitNotFound = 3

type signerFlags struct {
	keyDir  string
	name    string
	seedHex string
	keyFile string
	hashAlg string
}

func (s *signerFlags) register(f *pflag.FlagSet) {
	f.StringVar(&s.keyDir, "key-dir", "", "key directory (default ~/.offer-codes/keys)")
	f.StringVar(&s.name, "signer", "", "name of a key created with 'key init'")
	f.StringVar(&s.seedHex, "seed-hex", "", "ed25519 seed as 64 hex chars")
	f.StringVar(&s.keyFile, "key-file", "", "file holding a hex seed")
	f.StringVar(&s.hashAlg, "hash-alg", string(offer.SHA256), "content hash algorithm the server uses")
}

// sign decodes offerText and signs the content hash of its payload.
func (s *signerFlags) sign(offerText string) ([]byte, error) {
	alg, err := offer.ParseHashAlg(s.hashAlg)
	if err != nil {
		return nil, usageError{err}
	}
	ks, err := keys.OpenKeyStore(s.keyDir)
	if err != nil {
		return nil, fmt.Errorf("keys: %w", err)
	}
	seed, err := ks.LoadSeed(s.seedHex, s.name, s.keyFile)
	if err != nil {
		return nil, usagef("signer: %v (use --signer, --seed-hex or --key-file)", err)
	}
	priv, err := keys.PrivateKeyFromSeed(seed)
	if err != nil {
		return nil, err
	}
	payload, err := codec.New().Decode(offerText)
	if err != nil {
		return nil, fmt.Errorf("decode offer: %w", err)
	}
	return keys.SignEd25519(alg.Sum(payload).Digest, priv), nil
}

// readOffer takes the offer text inline, from @file, or from stdin for "-".
func readOffer(arg string, stdin io.Reader) (string, error) {
	var b []byte
	var err error
	switch {
	case arg == "-":
		b, err = io.ReadAll(stdin)
	case strings.HasPrefix(arg, "@"):
		b, err = os.ReadFile(arg[1:])
	default:
		return strings.TrimSpace(arg), nil
	}
	if err != nil {
		return "", fmt.Errorf("read offer: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func newSignCmd() *cobra.Command {
	var signer signerFlags
	cmd := &cobra.Command{
		Use:   "sign <offer|@file|->",
		Short: "Print a hex signature over an offer's content hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readOffer(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			sig, err := signer.sign(text)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(sig))
			return nil
		},
	}
	signer.register(cmd.Flags())
	return cmd
}

func newSubmitCmd() *cobra.Command {
	var (
		signer  signerFlags
		baseURL string
		sigHex  string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "submit <offer|@file|->",
		Short: "Upload a signed offer and print its code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readOffer(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			var sig []byte
			if sigHex != "" {
				if sig, err = hex.DecodeString(strings.TrimPrefix(sigHex, "0x")); err != nil {
					return usagef("invalid --signature: %v", err)
				}
			} else if sig, err = signer.sign(text); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			code, err := client.New(baseURL).Upload(ctx, text, sig)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), code)
			return nil
		},
	}
	signer.register(cmd.Flags())
	cmd.Flags().StringVar(&baseURL, "url", "http://127.0.0.1:8080", "server base URL")
	cmd.Flags().StringVar(&sigHex, "signature", "", "precomputed hex signature (skips local signing)")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")
	return cmd
}

func newFetchCmd() *cobra.Command {
	var (
		baseURL string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "fetch <code>",
		Short: "Print the offer stored under a code",
		Long:  fmt.Sprintf("Print the offer stored under a code. Exits %d when the code is unknown.", exitNotFound),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var code offer.Code
			if err := code.UnmarshalText([]byte(args[0])); err != nil {
				return usagef("invalid code: %v", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			text, found, err := client.New(baseURL).Download(ctx, code)
			if err != nil {
				return err
			}
			if !found {
				return exitError{code: exitNotFound, msg: "no offer for code " + code.String()}
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", "http://127.0.0.1:8080", "server base URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")
	return cmd
}

func newCIDCmd() *cobra.Command {
	var (
		hashAlg string
		width   int
	)
	cmd := &cobra.Command{
		Use:   "cid <offer|@file|-|cid>",
		Short: "Print the content CID and code of an offer, or the hash inside a CID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if h, err := cidutil.Parse(args[0]); err == nil {
				fmt.Fprintln(out, h)
				return nil
			}
			scheme, err := offer.NewScheme(hashAlg, width)
			if err != nil {
				return usageError{err}
			}
			text, err := readOffer(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			payload, err := codec.New().Decode(text)
			if err != nil {
				return fmt.Errorf("decode offer: %w", err)
			}
			h := scheme.Hash(payload)
			c, err := cidutil.PayloadCIDString(h)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "cid:  %s\ncode: %s\n", c, scheme.Deriver.Derive(h))
			return nil
		},
	}
	cmd.Flags().StringVar(&hashAlg, "hash-alg", string(offer.SHA256), "content hash algorithm")
	cmd.Flags().IntVar(&width, "code-width", offer.DefaultCodeWidth, "code width in bytes")
	return cmd
}

// parseSettings turns repeated key=value flags into backend settings.
func parseSettings(items []string) (registry.Settings, error) {
	out := registry.Settings{}
	for _, it := range items {
		k, v, ok := strings.Cut(it, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --setting %q (expected key=value)", it)
		}
		if _, dup := out[k]; dup {
			return nil, fmt.Errorf("duplicate --setting %q", k)
		}
		out[k] = v
	}
	return out, nil
}
