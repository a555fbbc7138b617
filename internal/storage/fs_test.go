package storage

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestFSStoreRoundTrip(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	key, err := s.Put("docs/course-1/notes.txt", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if key != "docs/course-1/notes.txt" {
		t.Fatalf("key=%q", key)
	}
	size, err := s.Stat(key)
	if err != nil || size != 5 {
		t.Fatalf("stat size=%d err=%v", size, err)
	}
	rc, err := s.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	rc.Close()
	if string(b) != "hello" {
		t.Fatalf("body=%q", b)
	}
	if err := s.Delete(key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestFSStoreKeepsKeysUnderBase(t *testing.T) {
	base := t.TempDir()
	s, _ := NewFSStore(base)
	p, err := s.path("../../etc/passwd")
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	if !strings.HasPrefix(p, base) {
		t.Fatalf("escaped base: %s", p)
	}
	if _, err := s.Put("  ", strings.NewReader("x")); err == nil {
		t.Fatal("expected empty key error")
	}
}
