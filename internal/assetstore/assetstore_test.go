package assetstore

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreFetch(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	m.Put("0_background_red.png", []byte{1, 2, 3})

	data, err := m.FetchRaster(ctx, "0_background_red.png")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(data) != 3 {
		t.Errorf("fetched %d bytes, want 3", len(data))
	}

	_, err = m.FetchRaster(ctx, "missing.png")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("fetch missing = %v, want *NotFoundError", err)
	}
	if nf.Key != "missing.png" {
		t.Errorf("NotFoundError.Key = %q, want missing.png", nf.Key)
	}
}

func TestMemoryStorePutRender(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	if err := m.PutRender(ctx, "renders/1.png", []byte{9}); err != nil {
		t.Fatalf("put render: %v", err)
	}
	if got := m.Keys(); len(got) != 1 || got[0] != "renders/1.png" {
		t.Errorf("keys = %v, want [renders/1.png]", got)
	}
}

func TestNewS3StoreDisabled(t *testing.T) {
	// Missing endpoint or credentials disables storage without error.
	s, err := NewS3Store("", "eu-central", "", "", "layers", "renders")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != nil {
		t.Error("expected nil store when unconfigured")
	}
}
