package receipt

import (
	"context"
	"io"

	"feedesk/pkg/cloudinary"
)

// CloudStore uploads receipts to Cloudinary; the handle is the secure URL.
type CloudStore struct {
	client cloudinary.Client
	folder string
}

func NewCloudStore(client cloudinary.Client, folder string) *CloudStore {
	return &CloudStore{client: client, folder: folder}
}

func (s *CloudStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	if _, err := Ext(filename); err != nil {
		return "", err
	}
	res, err := s.client.Upload(ctx, r, s.folder, newName())
	if err != nil {
		return "", err
	}
	return res.URL, nil
}
