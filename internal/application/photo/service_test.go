package photo

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/go-api-users/internal/config"
	"github.com/go-api-users/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockObjects struct{ mock.Mock }

func (m *mockObjects) Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	args := m.Called(ctx, key, r, contentType)
	return args.String(0), args.Error(1)
}
func (m *mockObjects) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}
func (m *mockObjects) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Update(ctx context.Context, userID string, updates map[string]any) error {
	return m.Called(ctx, userID, updates).Error(0)
}

// --- helpers ---

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.NRGBA{G: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func limits() config.Photo {
	return config.Photo{MaxBytes: 1 << 20, AllowedTypes: []string{"image/jpeg", "image/png"}, Quality: 80}
}

func newSvc(objs *mockObjects, us *mockUserStore, l config.Photo, publicURL string) Service {
	return NewService(ServiceDeps{Objects: objs, UserRepo: us, Limits: l, PublicURL: publicURL, PresignTTL: time.Hour})
}

func strPtr(s string) *string { return &s }

// --- Upload ---

func TestUpload_StoresUnderProfilePhotosAndReplacesOld(t *testing.T) {
	objs, us := &mockObjects{}, &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Image: strPtr("profile-photos/old.png")}, nil)
	objs.On("Upload", mock.Anything, mock.MatchedBy(func(k string) bool {
		return strings.HasPrefix(k, "profile-photos/") && strings.HasSuffix(k, ".png")
	}), mock.Anything, "image/png").Return("s3://bucket/key", nil)
	us.On("Update", mock.Anything, "u1", mock.Anything).Return(nil)
	objs.On("Delete", mock.Anything, "profile-photos/old.png").Return(nil)

	u, err := newSvc(objs, us, limits(), "").Upload(context.Background(), "u1", bytes.NewReader(pngBytes(t)))

	require.NoError(t, err)
	require.NotNil(t, u.Image)
	assert.NotEqual(t, "profile-photos/old.png", *u.Image)
	objs.AssertExpectations(t)
}

func TestUpload_CompressesToJPEG(t *testing.T) {
	objs, us := &mockObjects{}, &mockUserStore{}
	l := limits()
	l.Compress = true
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1"}, nil)
	objs.On("Upload", mock.Anything, mock.MatchedBy(func(k string) bool {
		return strings.HasSuffix(k, ".jpg")
	}), mock.Anything, "image/jpeg").Return("", nil)
	us.On("Update", mock.Anything, "u1", mock.Anything).Return(nil)

	_, err := newSvc(objs, us, l, "").Upload(context.Background(), "u1", bytes.NewReader(pngBytes(t)))

	require.NoError(t, err)
	objs.AssertExpectations(t)
	objs.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestUpload_CompressionFailure_StoresOriginal(t *testing.T) {
	objs, us := &mockObjects{}, &mockUserStore{}
	l := limits()
	l.Compress = true
	broken := pngBytes(t)[:40] // valid PNG signature, truncated pixel data
	var stored []byte
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1"}, nil)
	objs.On("Upload", mock.Anything, mock.MatchedBy(func(k string) bool {
		return strings.HasSuffix(k, ".png")
	}), mock.Anything, "image/png").Run(func(args mock.Arguments) {
		stored, _ = io.ReadAll(args.Get(2).(io.Reader))
	}).Return("", nil)
	us.On("Update", mock.Anything, "u1", mock.Anything).Return(nil)

	u, err := newSvc(objs, us, l, "").Upload(context.Background(), "u1", bytes.NewReader(broken))

	require.NoError(t, err)
	require.NotNil(t, u.Image)
	assert.Equal(t, broken, stored)
	objs.AssertExpectations(t)
}

func TestUpload_RejectsDisallowedType(t *testing.T) {
	objs, us := &mockObjects{}, &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1"}, nil)

	_, err := newSvc(objs, us, limits(), "").Upload(context.Background(), "u1", strings.NewReader("%PDF-1.4 not a photo"))

	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	objs.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpload_RejectsOversize(t *testing.T) {
	objs, us := &mockObjects{}, &mockUserStore{}
	l := limits()
	l.MaxBytes = 10
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1"}, nil)

	_, err := newSvc(objs, us, l, "").Upload(context.Background(), "u1", bytes.NewReader(pngBytes(t)))

	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestUpload_UpdateFails_RemovesNewObject(t *testing.T) {
	objs, us := &mockObjects{}, &mockUserStore{}
	boom := errors.New("boom")
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1"}, nil)
	objs.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", nil)
	us.On("Update", mock.Anything, "u1", mock.Anything).Return(boom)
	objs.On("Delete", mock.Anything, mock.Anything).Return(nil)

	_, err := newSvc(objs, us, limits(), "").Upload(context.Background(), "u1", bytes.NewReader(pngBytes(t)))

	assert.True(t, errors.Is(err, boom))
	objs.AssertNumberOfCalls(t, "Delete", 1)
}

// --- Delete ---

func TestDelete_ClearsImage(t *testing.T) {
	objs, us := &mockObjects{}, &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Image: strPtr("profile-photos/a.png")}, nil)
	us.On("Update", mock.Anything, "u1", map[string]any{domain.FieldImage: nil}).Return(nil)
	objs.On("Delete", mock.Anything, "profile-photos/a.png").Return(nil)

	require.NoError(t, newSvc(objs, us, limits(), "").Delete(context.Background(), "u1"))
	us.AssertExpectations(t)
	objs.AssertExpectations(t)
}

func TestDelete_NoPhotoIsNoop(t *testing.T) {
	objs, us := &mockObjects{}, &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1"}, nil)

	require.NoError(t, newSvc(objs, us, limits(), "").Delete(context.Background(), "u1"))
	us.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

// --- URL ---

func TestURL_AvatarFallback(t *testing.T) {
	u := &domain.User{FirstName: "Ada", LastName: "Lovelace"}
	got := newSvc(&mockObjects{}, &mockUserStore{}, limits(), "").URL(context.Background(), u)
	assert.Equal(t, "https://ui-avatars.com/api/?background=EBF4FF&color=7F9CF5&name=AL", got)
}

func TestURL_PublicBase(t *testing.T) {
	u := &domain.User{Image: strPtr("profile-photos/a.png")}
	got := newSvc(&mockObjects{}, &mockUserStore{}, limits(), "https://cdn.example.com").URL(context.Background(), u)
	assert.Equal(t, "https://cdn.example.com/profile-photos/a.png", got)
}

func TestURL_Presigned(t *testing.T) {
	objs := &mockObjects{}
	objs.On("PresignedURL", mock.Anything, "profile-photos/a.png", time.Hour).Return("https://signed", nil)
	u := &domain.User{Image: strPtr("profile-photos/a.png")}

	got := newSvc(objs, &mockUserStore{}, limits(), "").URL(context.Background(), u)
	assert.Equal(t, "https://signed", got)
}
