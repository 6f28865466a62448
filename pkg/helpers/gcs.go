package helpers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const gcsPublicHost = "https://storage.googleapis.com/"

// coverTypes maps accepted cover content types to the extension stored in GCS.
var coverTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// NewGCSClient uses the service account file at credsPath, or application
// default credentials when it is empty.
func NewGCSClient(ctx context.Context, credsPath string) (*storage.Client, error) {
	if credsPath == "" {
		return storage.NewClient(ctx)
	}
	return storage.NewClient(ctx, option.WithCredentialsFile(credsPath))
}

// CoverExtension returns the stored extension for an accepted cover type.
func CoverExtension(contentType string) (string, bool) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", false
	}
	ext, ok := coverTypes[mt]
	return ext, ok
}

// CoverObjectPath is covers/<bookID>/<objectID><ext>.
func CoverObjectPath(bookID, objectID, ext string) string {
	return path.Join("covers", bookID, objectID+ext)
}

// UploadObject writes r to bucket/objectPath and returns its public URL.
func UploadObject(ctx context.Context, client *storage.Client, bucket, objectPath, contentType string, r io.Reader) (string, error) {
	wc := client.Bucket(bucket).Object(objectPath).NewWriter(ctx)
	wc.ContentType = contentType
	wc.CacheControl = "public, max-age=86400"
	wc.ChunkSize = 0 // covers are small; one request
	if _, err := io.Copy(wc, r); err != nil {
		_ = wc.Close()
		return "", fmt.Errorf("write %s: %w", objectPath, err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", objectPath, err)
	}
	return PublicURL(bucket, objectPath), nil
}

// DeleteObject removes bucket/objectPath; a missing object is not an error.
func DeleteObject(ctx context.Context, client *storage.Client, bucket, objectPath string) error {
	err := client.Bucket(bucket).Object(objectPath).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return err
	}
	return nil
}

func PublicURL(bucket, objectPath string) string {
	return gcsPublicHost + bucket + "/" + objectPath
}

// ObjectPathFromURL reverses PublicURL for objects in bucket.
func ObjectPathFromURL(bucket, url string) (string, bool) {
	p, ok := strings.CutPrefix(url, gcsPublicHost+bucket+"/")
	if !ok || p == "" {
		return "", false
	}
	return p, true
}
