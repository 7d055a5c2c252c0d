package documents

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	bucket, path string
	err          error
	stored       map[string]bool
}

func (f *fakeStore) Exists(_ context.Context, bucket, path string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.stored[bucket+"/"+path], nil
}

func (f *fakeStore) CreateSignedUploadURL(_ context.Context, bucket, path string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.bucket, f.path = bucket, path
	return "https://storage.test/upload/" + path, nil
}

func TestSignedUploadReference(t *testing.T) {
	store := &fakeStore{}
	s := &Service{Store: store, Now: func() time.Time { return time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC) }}

	up, err := s.SignedUpload(context.Background(), BucketKYC, "../mi cédula.PNG")
	require.NoError(t, err)

	assert.Equal(t, BucketKYC, store.bucket)
	assert.Regexp(t, regexp.MustCompile(`^kyc-documents/2026/02/[0-9a-f-]{36}-mi_c_dula\.PNG$`), up.Reference)
	assert.Equal(t, BucketKYC+"/"+store.path, up.Reference)
	assert.Equal(t, "https://storage.test/upload/"+store.path, up.UploadURL)
}

func TestSignedUploadValidation(t *testing.T) {
	s := &Service{Store: &fakeStore{}}
	ctx := context.Background()

	_, err := s.SignedUpload(ctx, BucketPaymentProof, "  ")
	assert.ErrorIs(t, err, ErrFileNameRequired)

	_, err = s.SignedUpload(ctx, BucketPaymentProof, "comprobante.exe")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = s.SignedUpload(ctx, BucketPaymentProof, "comprobante.pdf")
	assert.NoError(t, err)
}

func TestSignedUploadStoreError(t *testing.T) {
	s := &Service{Store: &fakeStore{err: errors.New("storage down")}}
	_, err := s.SignedUpload(context.Background(), BucketKYC, "doc.jpg")
	assert.Error(t, err)
}

func TestSupabaseStore(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"url":"object/upload/sign/kyc-documents/a.png?token=t"}`))
	}))
	defer srv.Close()

	c := &SupabaseStore{BaseURL: srv.URL + "/", SecretKey: "service"}
	url, err := c.CreateSignedUploadURL(context.Background(), BucketKYC, "2026/02/a.png")
	require.NoError(t, err)
	assert.Equal(t, "/storage/v1/object/upload/sign/kyc-documents/2026/02/a.png", gotPath)
	assert.Equal(t, "Bearer service", gotAuth)
	assert.Equal(t, srv.URL+"/object/upload/sign/kyc-documents/a.png?token=t", url)
}

func TestSupabaseStoreErrors(t *testing.T) {
	ctx := context.Background()
	_, err := (&SupabaseStore{SecretKey: "k"}).CreateSignedUploadURL(ctx, BucketKYC, "a.png")
	assert.ErrorIs(t, err, ErrStoreNotConfigured)
	_, err = (&SupabaseStore{BaseURL: "http://x"}).CreateSignedUploadURL(ctx, BucketKYC, "a.png")
	assert.ErrorIs(t, err, ErrStoreNotConfigured)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"Invalid Compact JWS"}`))
	}))
	defer srv.Close()
	_, err = (&SupabaseStore{BaseURL: srv.URL, SecretKey: "anon"}).CreateSignedUploadURL(ctx, BucketKYC, "a.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service_role")
	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.Status)
	assert.Equal(t, "Invalid Compact JWS", se.Message)
}

func TestSupabaseStoreSignedURLTTL(t *testing.T) {
	var body struct {
		ExpiresIn int `json:"expiresIn"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"signedUrl":"https://cdn.example/signed"}`))
	}))
	defer srv.Close()

	c := &SupabaseStore{BaseURL: srv.URL, SecretKey: "service", SignedURLTTL: 10 * time.Minute}
	got, err := c.CreateSignedUploadURL(context.Background(), BucketPaymentProof, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/signed", got)
	assert.Equal(t, 600, body.ExpiresIn)
}

func TestVerifyReference(t *testing.T) {
	ctx := context.Background()
	ref := "kyc-documents/2026/02/6f1c0e7e-2b7a-4d4b-9a51-0d2b1f3f8c11-cedula.jpg"
	s := &Service{Store: &fakeStore{stored: map[string]bool{ref: true}}}

	assert.NoError(t, s.Verify(ctx, BucketKYC, ref))
	assert.ErrorIs(t, s.Verify(ctx, BucketKYC, "kyc-documents/2026/02/never-uploaded.jpg"), ErrNotUploaded)

	for _, bad := range []string{
		"payment-proofs/2026/02/x.jpg",
		"kyc-documents/../payment-proofs/x.jpg",
		"kyc-documents/x.jpg",
		"kyc-documents/2026/02/run.exe",
		"https://evil.example/x.jpg",
	} {
		assert.ErrorIs(t, s.Verify(ctx, BucketKYC, bad), ErrForeignReference, bad)
	}

	down := &Service{Store: &fakeStore{err: errors.New("storage down")}}
	assert.EqualError(t, down.Verify(ctx, BucketKYC, ref), "storage down")
}

func TestSupabaseStoreExists(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		switch {
		case strings.HasSuffix(r.URL.Path, "/here.pdf"):
			_, _ = w.Write([]byte(`{"name":"here.pdf"}`))
		case strings.HasSuffix(r.URL.Path, "/old.pdf"):
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"statusCode":"404","error":"not_found","message":"Object not found"}`))
		case strings.HasSuffix(r.URL.Path, "/broken.pdf"):
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"message":"db timeout"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := &SupabaseStore{BaseURL: srv.URL, SecretKey: "service"}
	ctx := context.Background()

	ok, err := c.Exists(ctx, BucketPaymentProof, "2026/04/here.pdf")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/storage/v1/object/info/authenticated/payment-proofs/2026/04/here.pdf", gotPath)

	for _, missing := range []string{"2026/04/gone.pdf", "2026/04/old.pdf"} {
		ok, err = c.Exists(ctx, BucketPaymentProof, missing)
		require.NoError(t, err, missing)
		assert.False(t, ok, missing)
	}

	_, err = c.Exists(ctx, BucketPaymentProof, "2026/04/broken.pdf")
	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Status)

	_, err = (&SupabaseStore{}).Exists(ctx, BucketPaymentProof, "2026/04/here.pdf")
	assert.ErrorIs(t, err, ErrStoreNotConfigured)
}
