package cache

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/gofrs/flock"

	"git.home.luguber.info/inful/mcm/internal/foundation/errors"
)

const (
	lockRetryDelay = 100 * time.Millisecond
	// DefaultLockWait bounds how long an operation waits for another mcm.
	DefaultLockWait = 30 * time.Second
)

// Lock is an advisory file lock next to the cache document.
type Lock struct {
	path string
	wait time.Duration
}

// NewLock creates a lock on path; the file is created on first use.
func NewLock(path string) *Lock {
	return &Lock{path: path, wait: DefaultLockWait}
}

// SetWait changes how long acquisition waits before giving up.
func (l *Lock) SetWait(d time.Duration) { l.wait = d }

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// Exclusive acquires the lock for a read-modify-write sequence.
func (l *Lock) Exclusive(ctx context.Context) (func(), error) {
	return l.acquire(ctx, true)
}

// Shared acquires the lock for read-only access.
func (l *Lock) Shared(ctx context.Context) (func(), error) {
	return l.acquire(ctx, false)
}

func (l *Lock) acquire(ctx context.Context, exclusive bool) (func(), error) {
	fl := flock.New(l.path)
	if l.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	var (
		ok  bool
		err error
	)
	if exclusive {
		ok, err = fl.TryLockContext(ctx, lockRetryDelay)
	} else {
		ok, err = fl.TryRLockContext(ctx, lockRetryDelay)
	}
	if err != nil || !ok {
		b := errors.NewError(errors.CategoryFileSystem, "cache is locked by another mcm process").
			WithContext("path", l.path).Retryable()
		if err != nil && !stderrors.Is(err, context.DeadlineExceeded) {
			b = b.WithCause(err)
		}
		return nil, b.Build()
	}
	return func() { _ = fl.Unlock() }, nil
}
