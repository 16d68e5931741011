package cache

import "testing"

func TestParseURL_Valid(t *testing.T) {
	opts, err := ParseURL("redis://localhost:6379/2")
	if err != nil {
		t.Fatalf("ParseURL() error = %v", err)
	}
	if opts.Addr != "localhost:6379" {
		t.Errorf("Addr = %q, want localhost:6379", opts.Addr)
	}
	if opts.DB != 2 {
		t.Errorf("DB = %d, want 2", opts.DB)
	}
}

func TestParseURL_Empty(t *testing.T) {
	if _, err := ParseURL(""); err == nil {
		t.Error("ParseURL(\"\") should return error")
	}
}

func TestParseURL_Invalid(t *testing.T) {
	if _, err := ParseURL("http://wrong-scheme"); err == nil {
		t.Error("ParseURL() should reject non-redis URL")
	}
}
