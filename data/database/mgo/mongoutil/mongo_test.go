package mongoutil

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestValidateAndSetDefaults(t *testing.T) {
	c := &Config{Address: []string{"m1:27017", "m2:27017"}, Database: "dogicord", Username: "u", Password: "p"}
	if err := c.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	want := "mongodb://u:p@m1:27017,m2:27017/dogicord?authSource=dogicord&maxPoolSize=100"
	if c.Uri != want {
		t.Fatalf("uri = %q, want %q", c.Uri, want)
	}
	if c.MaxRetry != defaultMaxRetry {
		t.Fatalf("max retry = %d", c.MaxRetry)
	}

	anon := &Config{Address: []string{"m1:27017"}, Database: "d", AuthSource: "admin"}
	_ = anon.ValidateAndSetDefaults()
	if anon.Uri != "mongodb://m1:27017/d?authSource=admin&maxPoolSize=100" {
		t.Fatalf("anon uri = %q", anon.Uri)
	}

	if err := (&Config{Database: "d"}).ValidateAndSetDefaults(); err == nil {
		t.Fatal("missing uri/address accepted")
	}
	if err := (&Config{Uri: "mongodb://x"}).ValidateAndSetDefaults(); err == nil {
		t.Fatal("missing database accepted")
	}
}

func TestBuildURIEscapesCredentials(t *testing.T) {
	c := &Config{Address: []string{"m1:27017"}, Database: "d", Username: "a@b", Password: "p:w", MaxPoolSize: 5}
	if got := c.buildURI(); got != "mongodb://a%40b:p%3Aw@m1:27017/d?authSource=d&maxPoolSize=5" {
		t.Fatalf("uri = %q", got)
	}
}

func TestSleepCtxCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if sleepCtx(ctx, time.Hour) {
		t.Fatal("sleep should stop on cancelled ctx")
	}
	if shouldRetry(ctx, errors.New("x")) {
		t.Fatal("cancelled ctx should not retry")
	}
}
