// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package workspace guards work directories and records what was built
// into them.
package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// LockFile is the name of the lock file created in a locked directory.
const LockFile = ".lock"

// ErrLocked is returned by TryLock when another process holds the lock.
var ErrLocked = errors.New("workspace is locked by another process")

const pollInterval = 100 * time.Millisecond

// Lock takes an exclusive advisory lock on dir, waiting until it is free or
// ctx is done. The returned unlock releases it.
func Lock(ctx context.Context, dir string) (unlock func(), err error) {
	for {
		unlock, err = TryLock(dir)
		if !errors.Is(err, ErrLocked) {
			return unlock, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// TryLock is like Lock but fails with ErrLocked instead of waiting.
func TryLock(dir string) (unlock func(), err error) {
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, LockFile), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	if err = lockFile(f); err != nil {
		f.Close()
		return nil, err
	}
	return func() {
		unlockFile(f)
		f.Close()
	}, nil
}
