// Copyright © 2018 One Concern

// Package storage provides interface to handle backend storage objects.
//
// The releaser keeps its durable records (baseline version, restore journal) in a Store.
// Only the local file system backend is provided.
package storage
