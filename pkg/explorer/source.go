package explorer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	errs "github.com/nodemedic/nodemedic/pkg/errors"
)

// PasteFilename is the upload name for pasted text.
const PasteFilename = "paste.json"

// Backend is the part of the backend contract sources need. *client.Client
// satisfies it.
type Backend interface {
	FetchDependencies(ctx context.Context, name string, depth int) ([]byte, error)
	Upload(ctx context.Context, filename string, r io.Reader) ([]byte, error)
}

// Source produces a raw graph payload.
type Source interface {
	// Kind is a short, low-cardinality label such as "package" or "paste".
	Kind() string
	// String describes the source for messages.
	String() string
	Fetch(ctx context.Context) ([]byte, error)
}

type sourceFunc struct {
	kind, desc string
	fetch      func(ctx context.Context) ([]byte, error)
}

func (s sourceFunc) Kind() string                              { return s.kind }
func (s sourceFunc) String() string                            { return s.desc }
func (s sourceFunc) Fetch(ctx context.Context) ([]byte, error) { return s.fetch(ctx) }

// FromPackage resolves name to depth through the backend.
func FromPackage(b Backend, name string, depth int) Source {
	return sourceFunc{
		kind: "package",
		desc: fmt.Sprintf("%s@depth%d", name, depth),
		fetch: func(ctx context.Context) ([]byte, error) {
			return b.FetchDependencies(ctx, name, depth)
		},
	}
}

// FromFile uploads the file at path through the backend.
func FromFile(b Backend, path string) Source {
	return sourceFunc{
		kind: "file",
		desc: path,
		fetch: func(ctx context.Context) ([]byte, error) {
			f, err := os.Open(path)
			if err != nil {
				if os.IsNotExist(err) {
					return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "open %s", path)
				}
				return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "open %s", path)
			}
			defer f.Close()
			return b.Upload(ctx, filepath.Base(path), f)
		},
	}
}

// FromPaste uploads pasted text through the backend as [PasteFilename].
func FromPaste(b Backend, text string) Source {
	return sourceFunc{
		kind: "paste",
		desc: "pasted JSON",
		fetch: func(ctx context.Context) ([]byte, error) {
			return b.Upload(ctx, PasteFilename, strings.NewReader(text))
		},
	}
}

// FromBytes loads data as is, without a backend.
func FromBytes(data []byte) Source {
	return sourceFunc{
		kind: "bytes",
		desc: "local payload",
		fetch: func(context.Context) ([]byte, error) {
			return data, nil
		},
	}
}
