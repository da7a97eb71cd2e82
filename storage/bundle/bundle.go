// Package bundle moves offers between stores as a deterministic TAR archive.
//
// Layout:
//
//	offers/<code hex>   raw canonical payload
//	index.json          optional, non-authoritative summary
//
// Import re-derives every code from its payload, so a bundle cannot file an
// offer under a code it does not hash to.
package bundle

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/Chia-Network/offer-codes/offer"
	"github.com/Chia-Network/offer-codes/storage"
)

// FormatVersion is the current bundle index schema version.
const FormatVersion = 1

const offersDir = "offers/"

var epoch0 = time.Unix(0, 0).UTC()

// ErrNotFound is returned by Export for a code the store does not hold.
var ErrNotFound = errors.New("bundle: offer not found")

type ExportOptions struct {
	// IncludeIndex controls whether index.json is included.
	IncludeIndex bool
}

// Export writes the offers stored under codes to w.
//
// The bundle bytes are deterministic: entry order is lexicographic, duplicates
// collapse, and TAR headers are normalized. Every payload is checked against
// its code before it is written.
func Export(ctx context.Context, w io.Writer, st storage.Store, scheme offer.Scheme, codes []offer.Code, opts ExportOptions) error {
	if st == nil {
		return errors.New("bundle: nil store")
	}

	uniq := make(map[string]offer.Code, len(codes))
	for _, c := range codes {
		if err := storage.CheckCode(c); err != nil {
			return err
		}
		uniq[c.String()] = c
	}
	names := make([]string, 0, len(uniq))
	for s := range uniq {
		names = append(names, s)
	}
	sort.Strings(names)

	tw := tar.NewWriter(w)
	entries := make([]indexEntry, 0, len(names))
	for _, name := range names {
		code := uniq[name]
		payload, found, err := st.Get(ctx, code)
		if err != nil {
			_ = tw.Close()
			return fmt.Errorf("bundle: get %s: %w", name, err)
		}
		if !found {
			_ = tw.Close()
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		if !scheme.Code(payload).Equal(code) {
			_ = tw.Close()
			return fmt.Errorf("bundle: %s: %w", name, storage.ErrCodeMismatch)
		}
		if err := writeFile(tw, offersDir+name, payload); err != nil {
			_ = tw.Close()
			return err
		}
		entries = append(entries, indexEntry{Code: name, Size: len(payload)})
	}

	if opts.IncludeIndex {
		b, err := marshalIndex(indexJSON{
			Version:   FormatVersion,
			HashAlg:   string(scheme.Alg),
			CodeWidth: scheme.Width(),
			Offers:    entries,
		})
		if err != nil {
			_ = tw.Close()
			return err
		}
		if err := writeFile(tw, "index.json", b); err != nil {
			_ = tw.Close()
			return err
		}
	}
	return tw.Close()
}

type ImportOptions struct {
	// IgnoreUnknown skips unknown TAR entries instead of failing.
	IgnoreUnknown bool
}

// Import reads a bundle from r and stores every offer in st. It returns the
// codes imported, in bundle order. Offers already present with the same bytes
// are not an error; a different offer under the same code is.
func Import(ctx context.Context, r io.Reader, st storage.Store, scheme offer.Scheme, opts ImportOptions) ([]offer.Code, error) {
	if st == nil {
		return nil, errors.New("bundle: nil store")
	}

	tr := tar.NewReader(r)
	seen := map[string]struct{}{}
	var imported []offer.Code
	for {
		h, err := tr.Next()
		if err == io.EOF {
			return imported, nil
		}
		if err != nil {
			return imported, err
		}
		name := cleanTarPath(h.Name)
		if name == "" {
			return imported, fmt.Errorf("bundle: invalid entry path: %q", h.Name)
		}
		if h.Typeflag != tar.TypeReg {
			if opts.IgnoreUnknown {
				continue
			}
			return imported, fmt.Errorf("bundle: unexpected tar entry type: %v (%s)", h.Typeflag, name)
		}
		if name == "index.json" {
			_, _ = io.Copy(io.Discard, tr)
			continue
		}
		if !strings.HasPrefix(name, offersDir) {
			if opts.IgnoreUnknown {
				_, _ = io.Copy(io.Discard, tr)
				continue
			}
			return imported, fmt.Errorf("bundle: unknown entry: %s", name)
		}

		code, err := scheme.ParseCode(strings.TrimPrefix(name, offersDir))
		if err != nil {
			return imported, fmt.Errorf("bundle: %s: %w", name, storage.ErrInvalidCode)
		}
		key := code.String()
		if _, ok := seen[key]; ok {
			return imported, fmt.Errorf("bundle: duplicate entry: %s", key)
		}
		seen[key] = struct{}{}

		payload, err := io.ReadAll(tr)
		if err != nil {
			return imported, err
		}
		if !scheme.Code(payload).Equal(code) {
			return imported, fmt.Errorf("bundle: %s: %w", key, storage.ErrCodeMismatch)
		}
		if err := st.Put(ctx, code, payload); err != nil {
			return imported, fmt.Errorf("bundle: put %s: %w", key, err)
		}
		imported = append(imported, code)
	}
}

type indexJSON struct {
	Version   int          `json:"version"`
	HashAlg   string       `json:"hashAlg"`
	CodeWidth int          `json:"codeWidth"`
	Offers    []indexEntry `json:"offers"`
}

type indexEntry struct {
	Code string `json:"code"`
	Size int    `json:"size"`
}

func marshalIndex(idx indexJSON) ([]byte, error) {
	b, err := json.Marshal(idx)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func writeFile(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch0,
		Typeflag: tar.TypeReg,
		Format:   tar.FormatUSTAR,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := io.Copy(tw, bytes.NewReader(content))
	return err
}

func cleanTarPath(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return ""
	}
	parts := strings.Split(name, "/")
	for _, part := range parts {
		if part == "" || part == "." || part == ".." {
			return ""
		}
	}
	return name
}
