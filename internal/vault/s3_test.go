package vault

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// fakeS3 keeps objects in a map and only supports single-part uploads.
type fakeS3 struct {
	mu      sync.Mutex
	bucket  string
	objects map[string][]byte
}

func newFakeS3(bucket string) *fakeS3 {
	return &fakeS3{bucket: bucket, objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if aws.ToString(in.Bucket) != f.bucket {
		return nil, &s3types.NotFound{}
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errors.New("multipart not supported")
}

func (f *fakeS3) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errors.New("multipart not supported")
}

func (f *fakeS3) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errors.New("multipart not supported")
}

func (f *fakeS3) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return &s3.AbortMultipartUploadOutput{}, nil
}

func TestS3Vault_PutAndGetSnapshot(t *testing.T) {
	client := newFakeS3("listings")
	v := NewS3Vault("offsite", "listings", "/tvp/", client)

	data := strings.Repeat("epg", 1000)
	if err := v.PutSnapshot("h1", "store", strings.NewReader(data), int64(len(data)), 4); err != nil {
		t.Fatalf("PutSnapshot() error = %v", err)
	}

	if _, ok := client.objects["tvp/h1/store"]; !ok {
		t.Errorf("snapshot object not stored under prefixed key, have %v", keys(client))
	}
	if got := string(client.objects["tvp/h1/store.version"]); got != "4" {
		t.Errorf("version marker = %q, want %q", got, "4")
	}

	var buf bytes.Buffer
	if err := v.GetSnapshot("h1", "store", &buf); err != nil {
		t.Fatalf("GetSnapshot() error = %v", err)
	}
	if buf.String() != data {
		t.Errorf("GetSnapshot() returned %d bytes, want %d", buf.Len(), len(data))
	}

	version, err := v.SnapshotVersion("h1", "store")
	if err != nil {
		t.Fatalf("SnapshotVersion() error = %v", err)
	}
	if version != 4 {
		t.Errorf("SnapshotVersion() = %d, want 4", version)
	}
}

func TestS3Vault_Missing(t *testing.T) {
	v := NewS3Vault("offsite", "listings", "", newFakeS3("listings"))

	version, err := v.SnapshotVersion("h1", "store")
	if err != nil || version != 0 {
		t.Fatalf("SnapshotVersion() = %d, %v; want 0, nil", version, err)
	}

	var buf bytes.Buffer
	err = v.GetSnapshot("h1", "store", &buf)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("GetSnapshot() error = %v, want not found", err)
	}
}

func TestS3Vault_SizeMismatch(t *testing.T) {
	client := newFakeS3("listings")
	v := NewS3Vault("offsite", "listings", "", client)

	if err := v.PutSnapshot("h1", "store", strings.NewReader("short"), 99, 1); err == nil {
		t.Fatal("PutSnapshot() expected size mismatch error")
	}
	if _, ok := client.objects["h1/store.version"]; ok {
		t.Error("version marker written despite size mismatch")
	}
}

func TestS3Vault_ValidateSetup(t *testing.T) {
	client := newFakeS3("listings")

	if err := NewS3Vault("offsite", "listings", "", client).ValidateSetup(); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}
	if err := NewS3Vault("offsite", "missing", "", client).ValidateSetup(); err == nil {
		t.Error("ValidateSetup() expected error for missing bucket")
	}
}

func keys(f *fakeS3) []string {
	var out []string
	for k := range f.objects {
		out = append(out, k)
	}
	return out
}
