package importer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/emrgen/mediahub/internal/resource"
)

const maxThumbnailBytes = 10 << 20

// importThumbnail downloads an image and stores it. It returns nil without
// an error when no file store is configured.
func (i *Importer) importThumbnail(ctx context.Context, rawURL string) (*uuid.UUID, error) {
	if i.files == nil {
		return nil, nil
	}

	data, err := retry(ctx, i.retry, "thumbnail "+rawURL, func() ([]byte, error) {
		return i.download(ctx, rawURL)
	})
	if err != nil {
		return nil, err
	}

	ref, err := i.files.SaveFile(ctx, thumbnailName(rawURL), data)
	if err != nil {
		return nil, err
	}
	return &ref.ID, nil
}

func (i *Importer) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	res, err := i.fetcher.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxThumbnailBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxThumbnailBytes {
		return nil, fmt.Errorf("thumbnail %s is larger than %d bytes", rawURL, maxThumbnailBytes)
	}
	return data, nil
}

func thumbnailName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "thumbnail"
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "thumbnail"
	}
	return name
}

// dropReplacedThumbnail removes the previous thumbnail file once the
// resource points at a new one.
func (i *Importer) dropReplacedThumbnail(ctx context.Context, before, after *resource.Resource) {
	if i.files == nil || before == nil || before.Thumbnail == nil {
		return
	}
	if after.Thumbnail == nil || *after.Thumbnail == *before.Thumbnail {
		return
	}
	if err := i.files.Delete(ctx, *before.Thumbnail); err != nil {
		logrus.Warnf("import: delete replaced thumbnail %s: %v", before.Thumbnail, err)
	}
}
