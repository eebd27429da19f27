package objects

import "testing"

func TestObjectKey(t *testing.T) {
	cases := []struct{ owner, id, name, want string }{
		{"alice", "123", "cat.PNG", "images/alice/123.png"},
		{"alice", "124", "noext", "images/alice/124"},
		{"bob", "9", "weird.extension-too-long", "images/bob/9"},
	}
	for _, c := range cases {
		if got := ObjectKey(c.owner, c.id, c.name); got != c.want {
			t.Errorf("ObjectKey(%q,%q,%q) = %q, want %q", c.owner, c.id, c.name, got, c.want)
		}
	}
}

func TestNewValidates(t *testing.T) {
	if _, err := New(Config{Bucket: "b"}); err == nil {
		t.Fatal("missing endpoint accepted")
	}
	s, err := New(Config{Endpoint: "localhost:9000", Bucket: "dogicord", AccessKey: "k", SecretKey: "s"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if s.expiry <= 0 {
		t.Fatalf("expiry default not applied")
	}
}
