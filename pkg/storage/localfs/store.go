// Copyright © 2018 One Concern

package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/oneconcern/releaser/pkg/storage"
	"github.com/oneconcern/releaser/pkg/storage/status"
	"github.com/spf13/afero"
)

// prefix of the temporary files written by Put
const stagePrefix = ".put-"

// New creates a new local file system backed storage model, with atomic Put()s.
//
// Objects are written to a hidden temporary file next to their key, synced, then Rename()d into place,
// so a reader never observes a torn record and nothing is left behind.
//
// When fs is nil, the store is rooted at the current working directory.
func New(fs afero.Fs) (storage.Store, error) {
	if fs == nil {
		fs = afero.NewBasePathFs(afero.NewOsFs(), ".")
	}
	return &localFS{
		fs: fs,
	}, nil
}

type localFS struct {
	fs afero.Fs
}

func maybeInvalidKey(key string) error {
	const pathSepString = string(os.PathSeparator)
	trimmed := strings.TrimLeft(key, pathSepString)
	if trimmed == "" {
		return status.ErrInvalidResource.WrapMessage("empty key")
	}
	if strings.HasPrefix(filepath.Base(trimmed), stagePrefix) {
		return status.ErrInvalidResource.WrapMessage("key '%v' conflicts with put staging files", key)
	}
	return nil
}

func (l *localFS) Has(ctx context.Context, key string) (bool, error) {
	if err := maybeInvalidKey(key); err != nil {
		return false, err
	}
	fi, err := l.fs.Stat(key)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	return !fi.IsDir(), nil
}

func (l *localFS) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	has, err := l.Has(ctx, key)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, status.ErrNotExists.WrapMessage("%q", key)
	}
	return l.fs.Open(key)
}

func (l *localFS) Put(ctx context.Context, key string, source io.Reader, overwrite bool) error {
	if err := maybeInvalidKey(key); err != nil {
		return err
	}
	if !overwrite {
		has, err := l.Has(ctx, key)
		if err != nil {
			return err
		}
		if has {
			return status.ErrExists.WrapMessage("%q", key)
		}
	}

	/* Rename() doesn't create directories automatically */
	dir := filepath.Dir(key)
	if err := l.fs.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("ensuring directories for %q: %v", key, err)
	}
	stage, err := afero.TempFile(l.fs, dir, stagePrefix+filepath.Base(key)+".")
	if err != nil {
		return fmt.Errorf("create record for %q: %v", key, err)
	}
	stageName := stage.Name()
	committed := false
	defer func() {
		if !committed {
			_ = l.fs.Remove(stageName)
		}
	}()

	if _, err = io.Copy(stage, source); err != nil {
		_ = stage.Close()
		return fmt.Errorf("write record for %q: %v", key, err)
	}
	if err = stage.Sync(); err != nil {
		_ = stage.Close()
		return fmt.Errorf("sync record for %q: %v", key, err)
	}
	if err = stage.Close(); err != nil {
		return err
	}

	if err = l.fs.Rename(stageName, key); err != nil {
		return fmt.Errorf("commit record for %q: %v", key, err)
	}
	committed = true
	return nil
}

func (l *localFS) Delete(ctx context.Context, key string) error {
	if err := maybeInvalidKey(key); err != nil {
		return err
	}
	if err := l.fs.Remove(key); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %q: %v", key, err)
	}
	return nil
}

func (l *localFS) String() string {
	const localfs = "localfs"
	switch fs := l.fs.(type) {
	case *afero.BasePathFs:
		pp, err := fs.RealPath("")
		if err != nil {
			return localfs
		}
		return localfs + "@" + pp
	default:
		return localfs
	}
}
