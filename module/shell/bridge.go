package shell

import (
	"context"
	"strconv"
	"sync"

	"DogiCord/logger"
	"DogiCord/tools/errs"

	"go.uber.org/zap"
)

// 出站帧类型
const (
	FrameNativeNotification = "native_notification"
	FrameRestoreWindow      = "restore_window"
	FrameNavigate           = "navigate"
	FrameShellCommand       = "shell_command"
	FrameUpdateState        = "update_state"
)

// 壳命令
const (
	CmdGetVersion         = "get_version"
	CmdCheckForUpdates    = "check_for_updates"
	CmdInstallUpdate      = "install_update"
	CmdReportConnectivity = "report_connectivity"
)

var ErrNoDesktop = errs.NewCodeError(errs.ArgsError, "desktop bridge not available")

// Sender 会话出站帧
type Sender interface {
	Send(typ string, data any) error
}

type NativeNotification struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag,omitempty"`
}

type command struct {
	Command string `json:"command"`
	ID      string `json:"id,omitempty"`
	Online  *bool  `json:"online,omitempty"`
}

// Bridge 会话内的宿主壳能力：通知、窗口、导航、版本、自动更新、连通性
type Bridge struct {
	send    Sender
	desktop bool

	mu         sync.Mutex
	version    string
	state      UpdateState
	nextID     int
	clickSubs  map[int]func(tag string)
	updateSubs map[int]func(UpdateState)
	waiters    map[string]chan string
}

func NewBridge(send Sender, desktop bool, version string) *Bridge {
	return &Bridge{
		send:       send,
		desktop:    desktop,
		version:    version,
		state:      Idle{},
		clickSubs:  make(map[int]func(string)),
		updateSubs: make(map[int]func(UpdateState)),
		waiters:    make(map[string]chan string),
	}
}

// Desktop 是否运行在桌面壳内
func (b *Bridge) Desktop() bool { return b.desktop }

func (b *Bridge) SendNotification(n NativeNotification) error {
	if !b.desktop {
		return ErrNoDesktop.Wrap()
	}
	return b.send.Send(FrameNativeNotification, n)
}

// OnNotificationClick 返回取消订阅函数
func (b *Bridge) OnNotificationClick(fn func(tag string)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.clickSubs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.clickSubs, id)
			b.mu.Unlock()
		})
	}
}

// HandleNotificationClick 入站 notification_click
func (b *Bridge) HandleNotificationClick(tag string) {
	b.mu.Lock()
	fns := make([]func(string), 0, len(b.clickSubs))
	for _, fn := range b.clickSubs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn(tag)
	}
}

func (b *Bridge) RestoreWindow() error {
	return b.send.Send(FrameRestoreWindow, struct{}{})
}

func (b *Bridge) Navigate(route string) error {
	return b.send.Send(FrameNavigate, map[string]string{"route": route})
}

// Version hello 帧里带的版本（同步）
func (b *Bridge) Version() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}

// VersionAsync 向壳请求版本，等 shell_version 回包
func (b *Bridge) VersionAsync(ctx context.Context) (string, error) {
	if !b.desktop {
		return b.Version(), nil
	}
	b.mu.Lock()
	id := "v" + strconv.Itoa(b.nextID)
	b.nextID++
	ch := make(chan string, 1)
	b.waiters[id] = ch
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.waiters, id)
		b.mu.Unlock()
	}()

	if err := b.send.Send(FrameShellCommand, command{Command: CmdGetVersion, ID: id}); err != nil {
		return "", err
	}
	select {
	case v := <-ch:
		return v, nil
	case <-ctx.Done():
		return "", errs.WrapMsg(ctx.Err(), "wait shell version")
	}
}

// HandleVersion 入站 shell_version；id 为空时只更新缓存
func (b *Bridge) HandleVersion(id, version string) {
	b.mu.Lock()
	if version != "" {
		b.version = version
	}
	ch := b.waiters[id]
	b.mu.Unlock()
	if ch != nil {
		select {
		case ch <- version:
		default:
		}
	}
}

func (b *Bridge) CheckForUpdates() error {
	if !b.desktop {
		return ErrNoDesktop.Wrap()
	}
	return b.send.Send(FrameShellCommand, command{Command: CmdCheckForUpdates})
}

// InstallUpdate 只有 Downloaded 状态下可以安装
func (b *Bridge) InstallUpdate() error {
	if !b.desktop {
		return ErrNoDesktop.Wrap()
	}
	if _, ok := b.State().(Downloaded); !ok {
		return errs.ErrUpdateNotReady.WrapMsg("", "phase", b.State().Phase())
	}
	return b.send.Send(FrameShellCommand, command{Command: CmdInstallUpdate})
}

func (b *Bridge) OnUpdateEvent(fn func(UpdateState)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.updateSubs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.updateSubs, id)
			b.mu.Unlock()
		})
	}
}

// HandleUpdateEvent 入站 shell_update_event：归约、通知订阅者、回推 update_state
func (b *Bridge) HandleUpdateEvent(ev UpdateEvent) UpdateState {
	b.mu.Lock()
	next := Reduce(b.state, ev)
	b.state = next
	fns := make([]func(UpdateState), 0, len(b.updateSubs))
	for _, fn := range b.updateSubs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(next)
	}
	if err := b.send.Send(FrameUpdateState, Frame(next)); err != nil {
		logger.Warn("[Shell] push update state failed", zap.String("phase", next.Phase()), zap.Error(err))
	}
	return next
}

func (b *Bridge) State() UpdateState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// ReportConnectivity 告诉壳当前连通性（托盘 / 开机启动项用）
func (b *Bridge) ReportConnectivity(online bool) error {
	if !b.desktop {
		return nil
	}
	return b.send.Send(FrameShellCommand, command{Command: CmdReportConnectivity, Online: &online})
}
