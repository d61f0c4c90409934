package model

import (
	"errors"
	"fmt"
	"strings"
)

const (
	MaxAvatarSizeBytes = 5 * 1024 * 1024
	AvatarWidth        = 200
	AvatarHeight       = 200
	AvatarFolder       = "avatars"
	AvatarExt          = ".jpg"
	AvatarCacheControl = "public, max-age=31536000" // 1 year

	PresignExpirySeconds = 900
)

// Supported image content types for upload validation
const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
	ContentTypeGIF  = "image/gif"
	ContentTypeWebP = "image/webp"
)

var allowedImageTypes = map[string]string{
	ContentTypeJPEG: ".jpg",
	ContentTypePNG:  ".png",
	ContentTypeGIF:  ".gif",
	ContentTypeWebP: ".webp",
}

// Error codes for HTTP responses
const (
	CodeFileTooLarge     = "FILE_TOO_LARGE"
	CodeInvalidImageType = "INVALID_IMAGE_TYPE"
)

// Domain errors for media operations
var (
	ErrFileTooLarge     = errors.New("file too large")
	ErrInvalidImageType = errors.New("invalid image type")
)

// UploadResult represents the uploaded object location.
// Key is the object key inside the bucket, kept for later deletes.
type UploadResult struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// PresignPostUploadRequest requests a presigned URL for uploading a post attachment directly to R2.
// Client uploads bytes to UploadURL, then sends PublicURL as the post attachment.
type PresignPostUploadRequest struct {
	ContentType string `json:"contentType"`
	FileSize    int64  `json:"fileSize"`
}

// PresignPostUploadResponse returns upload details for direct-to-R2 uploads.
type PresignPostUploadResponse struct {
	UploadURL  string `json:"uploadUrl"`
	PublicURL  string `json:"publicUrl"`
	Key        string `json:"key"`
	ExpiresInS int    `json:"expiresIn"`
}

// IsAllowedImageType reports if the provided content type is supported
func IsAllowedImageType(contentType string) bool {
	_, ok := allowedImageTypes[contentType]
	return ok
}

// ImageExtension returns the file extension stored for a content type.
func ImageExtension(contentType string) string {
	return allowedImageTypes[contentType]
}

// PostMediaKeyPrefix is the bucket prefix under which authorID's attachments are uploaded.
func PostMediaKeyPrefix(authorID int64) string {
	return fmt.Sprintf("%s/%d/", PostMediaFolder, authorID)
}

// IsPostMediaKeyOf reports whether key is an attachment object uploaded by
// authorID: directly under the author's prefix, with no further path segments.
func IsPostMediaKeyOf(authorID int64, key string) bool {
	prefix := PostMediaKeyPrefix(authorID)
	if !strings.HasPrefix(key, prefix) {
		return false
	}
	name := strings.TrimPrefix(key, prefix)
	return name != "" && !strings.Contains(name, "/")
}
