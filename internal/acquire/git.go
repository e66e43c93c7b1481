package acquire

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-git/go-git/v5"

	"git.home.luguber.info/inful/mcm/internal/fetch"
	"git.home.luguber.info/inful/mcm/internal/foundation/errors"
	"git.home.luguber.info/inful/mcm/internal/logfields"
)

// clone clones the repository at uri into dir. Local paths are accepted.
func clone(ctx context.Context, dir, uri string) error {
	url := uri
	if path, ok := fetch.LocalPath(uri); ok {
		url = path
	}
	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{URL: url})
	if err != nil {
		return classifyCloneError(err, uri)
	}
	if ref, herr := repo.Head(); herr == nil {
		slog.DebugContext(ctx, "Cloned repository", logfields.URI(uri), slog.String("commit", ref.Hash().String()[:8]))
	}
	return nil
}

func classifyCloneError(err error, uri string) error {
	b := errors.GitError("clone failed").WithCause(err).WithContext("uri", uri)
	l := strings.ToLower(err.Error())
	switch {
	case strings.Contains(l, "authentication") || strings.Contains(l, "not authorized"):
		b.WithRetry(errors.RetryNever)
	case strings.Contains(l, "not found") || strings.Contains(l, "does not exist"):
		b.WithRetry(errors.RetryNever)
	case strings.Contains(l, "empty"):
		b.WithRetry(errors.RetryNever)
	}
	return b.Build()
}
