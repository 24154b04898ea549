package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func TestLocalUploadAndDelete(t *testing.T) {
	root := t.TempDir()
	l := NewLocal(root, "files/")
	ctx := context.Background()

	url, err := l.Upload(ctx, "kyc/u1/selfie.jpg", "image/jpeg", strings.NewReader("img"), 3)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "/files/kyc/u1/selfie.jpg" {
		t.Fatalf("url = %q", url)
	}
	got, err := os.ReadFile(filepath.Join(root, "kyc", "u1", "selfie.jpg"))
	if err != nil || string(got) != "img" {
		t.Fatalf("stored = %q, %v", got, err)
	}

	if err := l.Delete(ctx, url); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "kyc", "u1", "selfie.jpg")); !os.IsNotExist(err) {
		t.Fatalf("file still present: %v", err)
	}
	// second delete is a no-op
	if err := l.Delete(ctx, url); err != nil {
		t.Fatalf("Delete again: %v", err)
	}
}

func TestLocalKeysCannotEscapeRoot(t *testing.T) {
	root := t.TempDir()
	l := NewLocal(filepath.Join(root, "store"), "/files")

	url, err := l.Upload(context.Background(), "../../etc/passwd", "text/plain", strings.NewReader("x"), 1)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "/files/etc/passwd" {
		t.Fatalf("url = %q", url)
	}
	if _, err := os.Stat(filepath.Join(root, "store", "etc", "passwd")); err != nil {
		t.Fatalf("file not under root: %v", err)
	}
}

func TestLocalDeleteForeignURL(t *testing.T) {
	l := NewLocal(t.TempDir(), "/files")
	if err := l.Delete(context.Background(), "https://elsewhere/x.jpg"); !errors.Is(err, ErrForeignURL) {
		t.Fatalf("err = %v, want ErrForeignURL", err)
	}
}

type fakeS3 struct {
	puts    []*s3.PutObjectInput
	deletes []*s3.DeleteObjectInput
	putErr  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	_, _ = io.ReadAll(in.Body)
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, in)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3UploadUsesPrefixAndBaseURL(t *testing.T) {
	fake := &fakeS3{}
	s := NewS3(fake, "bucket", "/uploads/", "https://cdn.example.test/")

	url, err := s.Upload(context.Background(), "kyc/a.png", "image/png", strings.NewReader("png"), 3)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "https://cdn.example.test/uploads/kyc/a.png" {
		t.Fatalf("url = %q", url)
	}
	if len(fake.puts) != 1 || *fake.puts[0].Key != "uploads/kyc/a.png" || *fake.puts[0].ContentType != "image/png" {
		t.Fatalf("put = %+v", fake.puts)
	}

	if err := s.Delete(context.Background(), url); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(fake.deletes) != 1 || *fake.deletes[0].Key != "uploads/kyc/a.png" {
		t.Fatalf("delete = %+v", fake.deletes)
	}
}

func TestS3DeleteForeignURL(t *testing.T) {
	s := NewS3(&fakeS3{}, "bucket", "", "https://cdn.example.test")
	if err := s.Delete(context.Background(), "/files/x.jpg"); !errors.Is(err, ErrForeignURL) {
		t.Fatalf("err = %v", err)
	}
}

func TestS3UploadError(t *testing.T) {
	s := NewS3(&fakeS3{putErr: errors.New("boom")}, "bucket", "", "https://cdn")
	if _, err := s.Upload(context.Background(), "a", "image/png", strings.NewReader("x"), 1); err == nil {
		t.Fatal("expected error")
	}
}

func TestKeyCleansTraversal(t *testing.T) {
	l := NewLocal(t.TempDir(), "/files")
	s := NewS3(&fakeS3{}, "bucket", "media", "https://cdn.example.test")

	tests := []struct {
		name    string
		store   Store
		url     string
		want    string
		wantErr bool
	}{
		{name: "local plain", store: l, url: "/files/uploads/a/x.png", want: "uploads/a/x.png"},
		{name: "local dot-dot", store: l, url: "/files/uploads/a/../b/x.png", want: "uploads/b/x.png"},
		{name: "local stays under root", store: l, url: "/files/../secret", want: "secret"},
		{name: "local foreign", store: l, url: "https://elsewhere/x.png", wantErr: true},
		{name: "s3 strips prefix", store: s, url: "https://cdn.example.test/media/uploads/a/x.png", want: "uploads/a/x.png"},
		{name: "s3 dot-dot", store: s, url: "https://cdn.example.test/media/uploads/a/../b/x.png", want: "uploads/b/x.png"},
		{name: "s3 outside prefix", store: s, url: "https://cdn.example.test/other/x.png", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.store.Key(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Key(%q) err = %v", tt.url, err)
			}
			if !tt.wantErr && got != tt.want {
				t.Fatalf("Key(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}
