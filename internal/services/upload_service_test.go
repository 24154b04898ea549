package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"remesas/internal/authz"
	"remesas/internal/models"
	"remesas/internal/storage"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR"), make([]byte, 32)...)

type fakeStore struct {
	objects   map[string][]byte
	deleted   []string
	uploadErr error
}

func newFakeStore() *fakeStore { return &fakeStore{objects: map[string][]byte{}} }

func (f *fakeStore) Upload(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	data, _ := io.ReadAll(body)
	url := "/files/" + key
	f.objects[url] = data
	return url, nil
}

func (f *fakeStore) Key(url string) (string, error) {
	rel, ok := strings.CutPrefix(url, "/files/")
	if !ok {
		return "", storage.ErrForeignURL
	}
	return strings.TrimPrefix(path.Clean("/"+rel), "/"), nil
}

func (f *fakeStore) Delete(_ context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	delete(f.objects, url)
	return nil
}

func TestUploadCheck(t *testing.T) {
	tests := []struct {
		name    string
		body    []byte
		wantErr error
		wantExt string
	}{
		{name: "png", body: pngBytes, wantExt: ".png"},
		{name: "pdf", body: []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n"), wantExt: ".pdf"},
		{name: "plain text", body: []byte("hello, not an image"), wantErr: ErrFileType},
		{name: "empty", body: nil, wantErr: ErrEmptyFile},
		{name: "one byte over", body: append(append([]byte{}, pngBytes...), make([]byte, 64)...), wantErr: ErrFileTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			svc := NewUploadService(store, nil, int64(len(pngBytes)+63))
			url, err := svc.Upload(context.Background(), uuid.New(), bytes.NewReader(tt.body))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				if len(store.objects) != 0 {
					t.Fatal("rejected file reached the store")
				}
				return
			}
			if err != nil {
				t.Fatalf("Upload: %v", err)
			}
			if !strings.HasSuffix(url, tt.wantExt) {
				t.Fatalf("url = %q, want suffix %q", url, tt.wantExt)
			}
		})
	}
}

func TestUpload_GivenStoreFailure_ThenStorageError(t *testing.T) {
	store := newFakeStore()
	store.uploadErr = errors.New("bucket gone")
	svc := NewUploadService(store, nil, 0)
	_, err := svc.Upload(context.Background(), uuid.New(), bytes.NewReader(pngBytes))
	if !errors.Is(err, ErrStorageFailure) || KindOf(err) != KindExternalService {
		t.Fatalf("err = %v", err)
	}
}

func TestDeleteUpload_OnlyOwnFiles(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	svc := NewUploadService(storage.NewLocal(root, "/files"), nil, 0)
	owner, stranger := uuid.New(), uuid.New()

	url, err := svc.Upload(ctx, owner, bytes.NewReader(pngBytes))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	onDisk := filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(url, "/files/")))
	name := path.Base(url)

	tests := []struct {
		name string
		url  string
	}{
		{name: "stranger, direct url", url: url},
		{name: "stranger, dot-dot through own folder", url: "/files/uploads/" + stranger.String() + "/../" + owner.String() + "/" + name},
		{name: "stranger, owner id elsewhere in path", url: "/files/kyc/" + owner.String() + "/../../uploads/" + owner.String() + "/" + name + "/../x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.Delete(ctx, stranger, tt.url); !errors.Is(err, ErrNotAuthorized) {
				t.Fatalf("err = %v, want ErrNotAuthorized", err)
			}
			if _, err := os.Stat(onDisk); err != nil {
				t.Fatalf("owner's file removed: %v", err)
			}
		})
	}

	if err := svc.Delete(ctx, owner, "https://elsewhere/x.png"); KindOf(err) != KindValidation {
		t.Fatalf("foreign url err = %v", err)
	}
	if err := svc.Delete(ctx, owner, url); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(onDisk); !os.IsNotExist(err) {
		t.Fatalf("file still present: %v", err)
	}
}

func TestDeleteUpload_KYCBlobsNotDeletable(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	store := newFakeStore()
	svc := NewUploadService(store, env.kyc, 0)
	client := env.addUser(t, authz.RoleClient)
	k, _ := env.kyc.GetOrCreate(ctx, client.ID)

	url, err := svc.UploadKYCDocument(ctx, client.ID, k.ID, models.Selfie, bytes.NewReader(pngBytes))
	if err != nil {
		t.Fatalf("UploadKYCDocument: %v", err)
	}
	if err := svc.Delete(ctx, client.ID, url); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("err = %v, want ErrNotAuthorized", err)
	}
	if _, ok := store.objects[url]; !ok {
		t.Fatal("kyc document removed")
	}
}

func TestUploadKYCDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("stored and recorded", func(t *testing.T) {
		env := newTestEnv(t)
		store := newFakeStore()
		svc := NewUploadService(store, env.kyc, 0)
		client := env.addUser(t, authz.RoleClient)
		k, _ := env.kyc.GetOrCreate(ctx, client.ID)

		url, err := svc.UploadKYCDocument(ctx, client.ID, k.ID, models.Selfie, bytes.NewReader(pngBytes))
		if err != nil {
			t.Fatalf("UploadKYCDocument: %v", err)
		}
		wantPrefix := "/files/kyc/" + client.ID.String() + "/" + k.ID.String() + "/selfie-"
		if !strings.HasPrefix(url, wantPrefix) {
			t.Fatalf("url = %q", url)
		}
		if got := env.verification(t, k).Selfie; got == nil || *got != url {
			t.Fatalf("selfie = %v", got)
		}
	})

	t.Run("db failure removes blob", func(t *testing.T) {
		env := newTestEnv(t)
		store := newFakeStore()
		svc := NewUploadService(store, env.kyc, 0)
		client := env.addUser(t, authz.RoleClient)
		k, _ := env.kyc.GetOrCreate(ctx, client.ID)
		env.db.failSetDoc = errors.New("connection reset")

		_, err := svc.UploadKYCDocument(ctx, client.ID, k.ID, models.DocumentFront, bytes.NewReader(pngBytes))
		if KindOf(err) != KindInternal {
			t.Fatalf("err = %v", err)
		}
		if len(store.objects) != 0 || len(store.deleted) != 1 {
			t.Fatalf("objects=%d deleted=%v", len(store.objects), store.deleted)
		}
	})

	t.Run("locked verification never touches the store", func(t *testing.T) {
		env := newTestEnv(t)
		store := newFakeStore()
		svc := NewUploadService(store, env.kyc, 0)
		client, k := env.pendingKYC(t)

		_, err := svc.UploadKYCDocument(ctx, client.ID, k.ID, models.DocumentBack, bytes.NewReader(pngBytes))
		if !errors.Is(err, ErrKYCLocked) {
			t.Fatalf("err = %v", err)
		}
		if len(store.objects) != 0 {
			t.Fatal("blob stored for a locked verification")
		}
	})

	t.Run("unknown slot", func(t *testing.T) {
		env := newTestEnv(t)
		svc := NewUploadService(newFakeStore(), env.kyc, 0)
		client := env.addUser(t, authz.RoleClient)
		k, _ := env.kyc.GetOrCreate(ctx, client.ID)
		if _, err := svc.UploadKYCDocument(ctx, client.ID, k.ID, "utility_bill", bytes.NewReader(pngBytes)); !errors.Is(err, ErrInvalidDocumentType) {
			t.Fatalf("err = %v", err)
		}
	})
}
