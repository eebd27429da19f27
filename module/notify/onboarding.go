package notify

import (
	"context"
	"sync"
	"time"

	"DogiCord/logger"
	"DogiCord/service/storage"

	"go.uber.org/zap"
)

const FramePermissionPrompt = "permission_prompt"

// OnceFlags 每用户一次性标记（*storage.OnceFlags）
type OnceFlags interface {
	First(ctx context.Context, user, flag string) (bool, error)
}

type OnboardingOptions struct {
	PromptDelay    time.Duration
	WelcomeDelay   time.Duration
	WelcomeEnabled bool
	Flags          OnceFlags
}

// Onboarding 会话开始后的权限提示与一次性欢迎通知
type Onboarding struct {
	o OnboardingOptions

	mu     sync.Mutex
	timers []*time.Timer
	closed bool
}

func NewOnboarding(o OnboardingOptions) *Onboarding {
	if o.PromptDelay <= 0 {
		o.PromptDelay = 1500 * time.Millisecond
	}
	if o.WelcomeDelay <= 0 {
		o.WelcomeDelay = 4 * time.Second
	}
	return &Onboarding{o: o}
}

// Schedule 权限为 default 且不在桌面壳内时提示授权；backend 可用时发一次欢迎通知
func (b *Onboarding) Schedule(ctx context.Context, user string, caps Capabilities, backend Backend, send FrameSender) {
	if !caps.DesktopBridge && caps.Permission == PermissionDefault {
		b.after(b.o.PromptDelay, func() {
			if err := send.Send(FramePermissionPrompt, map[string]any{"service_worker": caps.ServiceWorker}); err != nil {
				logger.Warn("[Onboarding] permission prompt failed", zap.String("user", user), zap.Error(err))
			}
		})
	}
	if !b.o.WelcomeEnabled || b.o.Flags == nil || backend.Kind() == None {
		return
	}
	flag := storage.FlagWebWelcome
	if backend.Kind() == NativeDesktop {
		flag = storage.FlagDesktopWelcome
	}
	b.after(b.o.WelcomeDelay, func() {
		first, err := b.o.Flags.First(ctx, user, flag)
		if err != nil {
			logger.Warn("[Onboarding] read once flag failed", zap.String("user", user), zap.Error(err))
			return
		}
		if !first {
			return
		}
		n := Notification{
			ID:    "welcome:" + user,
			Title: "Welcome to DogiCord",
			Body:  "Notifications are on. You'll hear from your friends here.",
			Tag:   "welcome",
		}
		if err := backend.Deliver(ctx, n); err != nil {
			logger.Warn("[Onboarding] welcome notification failed", zap.String("user", user), zap.Error(err))
		}
	})
}

func (b *Onboarding) after(d time.Duration, fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.timers = append(b.timers, time.AfterFunc(d, fn))
}

// Close 取消尚未触发的定时器
func (b *Onboarding) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for _, t := range b.timers {
		t.Stop()
	}
	b.timers = nil
}
