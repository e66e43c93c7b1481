package acquire

import (
	"bytes"
	"context"

	"github.com/moby/go-archive"

	"git.home.luguber.info/inful/mcm/internal/foundation/errors"
)

// extract fetches a tar archive (optionally compressed) and unpacks it into dir.
func (a *Acquirer) extract(ctx context.Context, dir, uri string) error {
	data, err := a.fetcher.Fetch(ctx, uri)
	if err != nil {
		return err
	}
	if err := archive.Untar(bytes.NewReader(data), dir, &archive.TarOptions{NoLchown: true}); err != nil {
		return errors.NewError(errors.CategoryAcquisition, "cannot extract archive").
			WithCause(err).WithContext("uri", uri).WithContext("path", dir).Build()
	}
	return nil
}
