package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pysugar/dataroom/internal/api/middleware"
	"github.com/pysugar/dataroom/internal/apperr"
	"github.com/pysugar/dataroom/internal/db/dbtest"
	"github.com/pysugar/dataroom/internal/db/models"
	"github.com/pysugar/dataroom/internal/drive"
	"github.com/pysugar/dataroom/internal/storage"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeDrive struct {
	metadata    map[string]*drive.Metadata
	content     map[string][]byte
	downloadErr error
	lastList    drive.ListOptions
	lastMime    string
	listResult  *drive.ListResult
}

func (f *fakeDrive) ListFiles(_ context.Context, _ string, opts drive.ListOptions) (*drive.ListResult, error) {
	f.lastList = opts
	if f.listResult != nil {
		return f.listResult, nil
	}
	return &drive.ListResult{Files: []drive.File{}}, nil
}

func (f *fakeDrive) GetMetadata(_ context.Context, _ string, fileID string) (*drive.Metadata, error) {
	md, ok := f.metadata[fileID]
	if !ok {
		return nil, apperr.New(apperr.CodeDriveMetadataFailed, "Failed to get file metadata: not found")
	}
	return md, nil
}

func (f *fakeDrive) Download(_ context.Context, _ string, fileID, mimeType string) ([]byte, error) {
	f.lastMime = mimeType
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return f.content[fileID], nil
}

type fakeTokens struct {
	err error
}

func (f *fakeTokens) EnsureValidAccessToken(context.Context, *models.OAuthAccount) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "access-token", nil
}

type testEnv struct {
	db     *gorm.DB
	store  *storage.Store
	drive  *fakeDrive
	tokens *fakeTokens
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return &testEnv{
		db:     dbtest.Open(t),
		store:  storage.New(t.TempDir()),
		drive:  &fakeDrive{metadata: map[string]*drive.Metadata{}, content: map[string][]byte{}},
		tokens: &fakeTokens{},
	}
}

func (e *testEnv) user(t *testing.T, email string, connected bool) *models.User {
	t.Helper()
	u := &models.User{Email: email, Name: email}
	require.NoError(t, e.db.Create(u).Error)
	if connected {
		exp := time.Now().Add(time.Hour)
		require.NoError(t, e.db.Create(&models.OAuthAccount{
			UserID:            u.ID,
			Provider:          "google",
			ProviderAccountID: "sub-" + email,
			AccessToken:       "at",
			RefreshToken:      "rt",
			ExpiresAt:         &exp,
		}).Error)
	}
	return u
}

// serve routes req to h registered at pattern, as user.
func serve(t *testing.T, h http.HandlerFunc, pattern string, user *models.User, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, target, &buf)

	r := chi.NewRouter()
	r.With(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithUser(req.Context(), user)))
		})
	}).Method(method, pattern, h)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[apperr.Body](t, rec).Error
}
