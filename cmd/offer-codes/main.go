package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/Chia-Network/offer-codes/storage/badgerkv"
	_ "github.com/Chia-Network/offer-codes/storage/grpcstore"
	_ "github.com/Chia-Network/offer-codes/storage/localfs"
	_ "github.com/Chia-Network/offer-codes/storage/memstore"
	_ "github.com/Chia-Network/offer-codes/storage/objectstore"
	_ "github.com/Chia-Network/offer-codes/storage/pgstore"
	_ "github.com/Chia-Network/offer-codes/storage/redisstore"
	_ "github.com/Chia-Network/offer-codes/storage/sqlstore"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// usageError marks bad invocations; they exit with 2.
type usageError struct{ error }

func usagef(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

func run(args []string, out, errOut io.Writer) int {
	root := newRootCmd(out, errOut)
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return 0
	}
	fmt.Fprintln(errOut, err)
	var ue usageError
	if errors.As(err, &ue) {
		return 2
	}
	var ee exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

// exitError carries a specific exit status without extra output.
type exitError struct {
	code int
	msg  string
}

func (e exitError) Error() string { return e.msg }

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "offer-codes",
		Short:         "Exchange signed offers for short content-derived codes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	root.AddCommand(
		newServeCmd(),
		newStoreServeCmd(),
		newBackendsCmd(),
		newKeyCmd(),
		newSignCmd(),
		newSubmitCmd(),
		newFetchCmd(),
		newCIDCmd(),
		newBundleCmd(),
	)
	return root
}
