package sources

import (
	"context"
	"fmt"

	"github.com/viant/afs"

	"tablemerge/internal/etl"
	"tablemerge/internal/log"
)

var fs = afs.New()

// fetch downloads a file-backed resource in full. Any failure to locate or
// read it is reported as etl.ErrResourceUnavailable.
func fetch(ctx context.Context, res etl.Resource) ([]byte, error) {
	url, err := res.URL()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", etl.ErrResourceUnavailable, res.Raw, err)
	}
	data, err := fs.DownloadWithURL(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", etl.ErrResourceUnavailable, res.Raw, err)
	}
	log.G(ctx).WithField("url", url).Debugf("fetched %d bytes", len(data))
	return data, nil
}
