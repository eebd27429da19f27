package service

import (
	"context"
	"io"
	"sync"

	"DogiCord/service/feed"
	"DogiCord/service/kafka"
)

type published struct {
	user string
	ev   feed.Event
}

type recPublisher struct {
	mu  sync.Mutex
	out []published
}

func (p *recPublisher) Publish(_ context.Context, user string, ev feed.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = append(p.out, published{user: user, ev: ev})
	return nil
}

func (p *recPublisher) PublishMany(ctx context.Context, users []string, ev feed.Event) {
	for _, u := range users {
		_ = p.Publish(ctx, u, ev)
	}
}

func (p *recPublisher) to(user string) []feed.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []feed.Event
	for _, x := range p.out {
		if x.user == user {
			out = append(out, x.ev)
		}
	}
	return out
}

type recLog struct {
	mu    sync.Mutex
	kinds []string
}

func (l *recLog) Record(_ context.Context, _ string, a kafka.Activity) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.kinds = append(l.kinds, a.Kind)
}

type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (o *memObjects) Upload(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.objects[key] = b
	return nil
}

func (o *memObjects) URL(_ context.Context, key string) (string, error) {
	return "https://objects.test/" + key, nil
}

func (o *memObjects) Remove(_ context.Context, key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.objects, key)
	return nil
}
