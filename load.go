package ddlgrator

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

type loadOptions struct {
	verifyFingerprints bool
}

// LoadOption configures Load and LoadFS.
type LoadOption func(*loadOptions)

// VerifyFingerprints makes the loader reject documents whose Hash does not
// match the fingerprint of their operations. Documents with an empty Hash are
// accepted.
func VerifyFingerprints() LoadOption {
	return func(o *loadOptions) { o.verifyFingerprints = true }
}

// Load reads every migration document in dir.
func Load(dir string, opts ...LoadOption) ([]Migration, error) {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("migration directory %s does not exist", dir)
	}
	migs, err := LoadFS(os.DirFS(dir), ".", opts...)
	if err != nil {
		return nil, err
	}
	for i := range migs {
		migs[i].Path = filepath.Join(dir, filepath.FromSlash(migs[i].Path))
	}
	return migs, nil
}

// LoadFS reads every migration document in dir of fsys. Files are taken in
// lexical order; names starting with "_" or "." and files without a
// .toml, .yaml, .yml or .json extension are skipped. The id of each migration
// is its file name without extension. Duplicate ids are returned as is and
// rejected by Resolve.
func LoadFS(fsys fs.FS, dir string, opts ...LoadOption) ([]Migration, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("migration directory %s does not exist", dir)
		}
		return nil, err
	}
	var migrations []Migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
			continue
		}
		format, ok := FormatOf(name)
		if !ok {
			continue
		}
		file := path.Join(dir, name)
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, &LoadError{Path: file, Err: err}
		}
		id := strings.TrimSuffix(name, path.Ext(name))
		mig, err := Decode(id, format, data)
		if err != nil {
			return nil, &LoadError{Path: file, Err: err}
		}
		mig.Path = file
		if o.verifyFingerprints && mig.Hash != "" {
			sum, err := mig.Fingerprint()
			if err != nil {
				return nil, &LoadError{Path: file, Err: err}
			}
			if sum != mig.Hash {
				return nil, &LoadError{Path: file, Err: fmt.Errorf("hash %s does not match operations (%s)", mig.Hash, sum)}
			}
		}
		migrations = append(migrations, mig)
	}
	return migrations, nil
}
