package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/autopeer-io/shuttlebridge/pkg/options"
)

// bucketOnly answers HEAD for the "stops" bucket and 404 for everything else.
func bucketOnly(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead && strings.Trim(r.URL.Path, "/") == "stops" {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func newArchive(t *testing.T, bucket string) *MinIO {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(bucketOnly))
	t.Cleanup(srv.Close)

	opts := options.NewS3Options()
	opts.Endpoint = strings.TrimPrefix(srv.URL, "http://")
	opts.UseSSL = false
	opts.AccessKeyID, opts.SecretAccessKey = "key", "secret"
	opts.BucketName = bucket

	m, err := NewMinIO(opts)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestCheckBucket(t *testing.T) {
	if err := newArchive(t, "stops").CheckBucket(context.Background()); err != nil {
		t.Errorf("existing bucket: %v", err)
	}
	if err := newArchive(t, "other").CheckBucket(context.Background()); err == nil {
		t.Error("expected an error for a missing bucket")
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := newArchive(t, "stops").Load(context.Background()); err == nil {
		t.Error("expected error for a missing object")
	}
}
