package cache

import "testing"

func TestKeyForURL_Deterministic(t *testing.T) {
	a := KeyForURL("https://api.example.com/posts?token=x&count=100&sortBy=date")
	b := KeyForURL("https://api.example.com/posts?sortBy=date&token=x&count=100")

	if a.String() != b.String() {
		t.Errorf("parameter order fragments keys: %q vs %q", a, b)
	}
}

func TestKeyForURL_Format(t *testing.T) {
	key := KeyForURL("https://api.example.com/posts?b=2&a=1")

	want := "harvest:api.example.com/posts?a=1&b=2"
	if key.String() != want {
		t.Errorf("key = %q, want %q", key.String(), want)
	}
}

func TestKeyForURL_DistinctQueries(t *testing.T) {
	a := KeyForURL("https://api.example.com/posts?count=100")
	b := KeyForURL("https://api.example.com/posts?count=200")

	if a.String() == b.String() {
		t.Error("different queries must not collide")
	}
}

func TestKeyForURL_NoQuery(t *testing.T) {
	key := KeyForURL("https://api.example.com/posts")

	want := "harvest:api.example.com/posts"
	if key.String() != want {
		t.Errorf("key = %q, want %q", key.String(), want)
	}
}

func TestKeyForURL_MultiValuedParams(t *testing.T) {
	a := KeyForURL("https://api.example.com/posts?tag=b&tag=a")
	b := KeyForURL("https://api.example.com/posts?tag=a&tag=b")

	if a.String() != b.String() {
		t.Errorf("multi-valued params not normalized: %q vs %q", a, b)
	}
}
