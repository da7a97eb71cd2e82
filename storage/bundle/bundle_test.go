package bundle_test

import (
	"archive/tar"
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Chia-Network/offer-codes/offer"
	"github.com/Chia-Network/offer-codes/storage"
	"github.com/Chia-Network/offer-codes/storage/bundle"
	"github.com/Chia-Network/offer-codes/storage/localfs"
	"github.com/Chia-Network/offer-codes/storage/memstore"
)

var scheme = offer.DefaultScheme()

func put(t *testing.T, st storage.Store, payload string) offer.Code {
	t.Helper()
	code := scheme.Code([]byte(payload))
	require.NoError(t, st.Put(context.Background(), code, []byte(payload)))
	return code
}

func TestBundle_ExportIsDeterministic(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	c1 := put(t, st, "hello")
	c2 := put(t, st, "world")

	var outA, outB bytes.Buffer
	require.NoError(t, bundle.Export(ctx, &outA, st, scheme, []offer.Code{c2, c1, c2}, bundle.ExportOptions{IncludeIndex: true}))
	require.NoError(t, bundle.Export(ctx, &outB, st, scheme, []offer.Code{c1, c2}, bundle.ExportOptions{IncludeIndex: true}))
	require.Equal(t, outA.Bytes(), outB.Bytes())
}

func TestBundle_ImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := memstore.New()
	code := put(t, src, "payload")

	var buf bytes.Buffer
	require.NoError(t, bundle.Export(ctx, &buf, src, scheme, []offer.Code{code}, bundle.ExportOptions{IncludeIndex: true}))

	dst, err := localfs.New(t.TempDir())
	require.NoError(t, err)
	imported, err := bundle.Import(ctx, bytes.NewReader(buf.Bytes()), dst, scheme, bundle.ImportOptions{})
	require.NoError(t, err)
	require.Len(t, imported, 1)
	require.True(t, imported[0].Equal(code))

	got, found, err := dst.Get(ctx, code)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("payload"), got)

	// Importing again is idempotent.
	_, err = bundle.Import(ctx, bytes.NewReader(buf.Bytes()), dst, scheme, bundle.ImportOptions{})
	require.NoError(t, err)
}

func TestBundle_ExportMissingCode(t *testing.T) {
	err := bundle.Export(context.Background(), &bytes.Buffer{}, memstore.New(), scheme, []offer.Code{scheme.Code([]byte("absent"))}, bundle.ExportOptions{})
	require.ErrorIs(t, err, bundle.ErrNotFound)
}

func TestBundle_ImportRejectsCodeMismatch(t *testing.T) {
	other := scheme.Code([]byte("other"))
	// Name says "other" but bytes are "good".
	b := makeDeterministicTar(t, "offers/"+other.String(), []byte("good"))

	dst := memstore.New()
	_, err := bundle.Import(context.Background(), bytes.NewReader(b), dst, scheme, bundle.ImportOptions{})
	require.ErrorIs(t, err, storage.ErrCodeMismatch)
	require.Equal(t, 0, dst.Len(), "mismatched entry must not be stored")
}

func TestBundle_ImportUnknownEntries(t *testing.T) {
	ctx := context.Background()
	b := makeDeterministicTar(t, "notes/readme.txt", []byte("hi"))
	_, err := bundle.Import(ctx, bytes.NewReader(b), memstore.New(), scheme, bundle.ImportOptions{})
	require.Error(t, err, "unknown entries fail closed")
	_, err = bundle.Import(ctx, bytes.NewReader(b), memstore.New(), scheme, bundle.ImportOptions{IgnoreUnknown: true})
	require.NoError(t, err)

	b = makeDeterministicTar(t, "../offers/00", []byte("x"))
	_, err = bundle.Import(ctx, bytes.NewReader(b), memstore.New(), scheme, bundle.ImportOptions{IgnoreUnknown: true})
	require.Error(t, err, "path traversal")
}

func makeDeterministicTar(t *testing.T, name string, content []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  time.Unix(0, 0).UTC(),
		Typeflag: tar.TypeReg,
	}))
	_, err := tw.Write(content)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	return buf.Bytes()
}
