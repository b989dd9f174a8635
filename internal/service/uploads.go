package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/avakara/ewaste-platform/internal/model"
)

// uploadAll stores every file or none: when one upload fails the ones already stored are removed.
func uploadAll(ctx context.Context, storage ObjectStorage, folder string, files []File, log zerolog.Logger) ([]model.Attachment, error) {
	if len(files) == 0 {
		return []model.Attachment{}, nil
	}
	if storage == nil {
		return nil, fmt.Errorf("%w: object storage is not configured", ErrExternalService)
	}

	uploaded := make([]model.Attachment, 0, len(files))
	for _, file := range files {
		if len(file.Data) == 0 {
			deleteAll(ctx, storage, uploaded, log)
			return nil, fmt.Errorf("%w: file %s is empty", ErrInvalidInput, file.Name)
		}
		attachment, err := storage.Upload(ctx, folder, file)
		if err != nil {
			deleteAll(ctx, storage, uploaded, log)
			return nil, fmt.Errorf("%w: upload %s: %v", ErrExternalService, file.Name, err)
		}
		uploaded = append(uploaded, attachment)
	}
	return uploaded, nil
}

// deleteAll removes stored objects best-effort.
func deleteAll(ctx context.Context, storage ObjectStorage, attachments []model.Attachment, log zerolog.Logger) {
	if storage == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, attachment := range attachments {
		if attachment.StorageKey == "" {
			continue
		}
		if err := storage.Delete(ctx, attachment.StorageKey); err != nil {
			log.Warn().Err(err).Str("key", attachment.StorageKey).Msg("delete stored object")
		}
	}
}
