package email

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/inboxly/inbox-intel/internal/pkg/logger"
	"github.com/inboxly/inbox-intel/internal/postmark"
	"github.com/inboxly/inbox-intel/internal/storage"
)

// contentTypeExtensions maps the common inbound types to extensions
// before falling back to mime guessing.
var contentTypeExtensions = map[string]string{
	"image/jpeg":         ".jpg",
	"image/png":          ".png",
	"image/gif":          ".gif",
	"application/pdf":    ".pdf",
	"text/plain":         ".txt",
	"application/msword": ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	"application/vnd.ms-excel": ".xls",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": ".xlsx",
}

// fileExtension resolves the stored extension: the original filename's
// suffix wins, then the content-type table, then mime guessing, then
// none.
func fileExtension(name, contentType string) string {
	if name != "" && strings.Contains(name, ".") {
		return path.Ext(name)
	}
	if contentType == "" {
		return ""
	}
	if ext, ok := contentTypeExtensions[contentType]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	logger.Warn("could not determine attachment extension",
		"filename", name, "content_type", contentType)
	return ""
}

// storedFilename builds the unique on-disk name:
// "<uuid-hex>_<stem><ext>".
func storedFilename(name, contentType string) string {
	ext := fileExtension(name, contentType)
	stem := strings.TrimSuffix(path.Base(name), path.Ext(name))
	return uuid.New().String() + "_" + stem + ext
}

// SaveAttachments decodes and stores each attachment, then records the
// metadata rows on the caller's transaction. A single bad attachment is
// skipped rather than failing the whole email.
func (s *Store) SaveAttachments(ctx context.Context, q dbtx, blobs storage.BlobStore, emailID int64, attachments []postmark.AttachmentData) ([]Attachment, error) {
	if len(attachments) == 0 {
		return nil, nil
	}
	logger.Debug("saving attachments", "email_id", emailID, "count", len(attachments))

	var saved []Attachment
	for _, in := range attachments {
		data, err := base64.StdEncoding.DecodeString(in.Content)
		if err != nil {
			logger.Error("failed to decode attachment",
				"email_id", emailID, "filename", in.Name, "error", err.Error())
			continue
		}

		unique := storedFilename(in.Name, in.ContentType)
		key := fmt.Sprintf("%d/%s", emailID, unique)
		location, err := blobs.Save(ctx, key, in.ContentType, data)
		if err != nil {
			logger.Error("failed to store attachment",
				"email_id", emailID, "filename", in.Name, "error", err.Error())
			continue
		}

		a := Attachment{
			EmailID:       emailID,
			Filename:      in.Name,
			ContentType:   in.ContentType,
			ContentLength: in.ContentLength,
			ContentID:     nullString(in.ContentID),
			FilePath:      location,
			FileURL:       nullString(fmt.Sprintf("/api/v1/attachments/%d/%s", emailID, unique)),
		}
		if err := s.InsertAttachment(ctx, q, &a); err != nil {
			return saved, err
		}
		saved = append(saved, a)
	}
	return saved, nil
}
