// Copyright © 2018 One Concern

package storage

import (
	"context"
	"io"
	"io/ioutil"
)

// Overwrite modes for Put
const (
	OverWrite   = true
	NoOverWrite = false
)

// Store implementations know how to write entries to a K/V store.
//
// Typically this is something file system-like.
// Implementations of this interface are assumed to be fairly simple.
type Store interface {
	String() string
	Has(context.Context, string) (bool, error)
	Get(context.Context, string) (io.ReadCloser, error)
	Put(context.Context, string, io.Reader, bool) error
	Delete(context.Context, string) error
}

// ReadAll fetches a whole object from a store
func ReadAll(ctx context.Context, s Store, key string) ([]byte, error) {
	reader, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return ioutil.ReadAll(reader)
}
