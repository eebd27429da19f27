package notify

import (
	"sync"
	"time"
)

type ToastState int

const (
	ToastQueued ToastState = iota
	ToastVisible
	ToastDismissedTimeout
	ToastDismissedClick
	ToastDismissedAction
)

func (s ToastState) String() string {
	switch s {
	case ToastQueued:
		return "queued"
	case ToastVisible:
		return "visible"
	case ToastDismissedTimeout:
		return "timeout"
	case ToastDismissedClick:
		return "click"
	case ToastDismissedAction:
		return "action"
	}
	return "unknown"
}

func (s ToastState) Terminal() bool { return s >= ToastDismissedTimeout }

const (
	ActionAccept = "accept"
	ActionReject = "reject"
)

// Toast 应用内提示
type Toast struct {
	ID        string   `json:"id"`
	Kind      string   `json:"kind"`
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	Route     string   `json:"route,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
	Actions   []string `json:"actions,omitempty"`
	TimeoutMs int64    `json:"timeout_ms,omitempty"`
}

// ToastSink 渲染端（会话出站帧）
type ToastSink interface {
	ShowToast(t Toast)
	DismissToast(id string, reason ToastState)
}

type toastEntry struct {
	toast Toast
	state ToastState
	timer *time.Timer
}

const (
	defaultMaxVisible = 3
	keepDismissed     = 256
)

// Toasts queued -> visible -> dismissed(timeout|click|action)。
// 带 actions 的 toast 不会超时，也不占 maxVisible 名额（入队即 visible）；已 dismissed 为终态。
type Toasts struct {
	sink       ToastSink
	timeout    time.Duration
	maxVisible int

	mu        sync.Mutex
	entries   map[string]*toastEntry
	queue     []string // 排队中
	visible   int // 仅计会超时的 toast
	dismissed []string // 终态 id，按时间顺序，超过 keepDismissed 时淘汰
	closed    bool
}

func NewToasts(sink ToastSink, timeout time.Duration) *Toasts {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Toasts{
		sink:       sink,
		timeout:    timeout,
		maxVisible: defaultMaxVisible,
		entries:    make(map[string]*toastEntry),
	}
}

// Enqueue 同一 id 只接受一次
func (q *Toasts) Enqueue(t Toast) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	if _, ok := q.entries[t.ID]; ok {
		q.mu.Unlock()
		return false
	}
	if len(t.Actions) == 0 {
		t.TimeoutMs = q.timeout.Milliseconds()
	}
	e := &toastEntry{toast: t, state: ToastQueued}
	q.entries[t.ID] = e
	var shown []Toast
	if len(t.Actions) > 0 {
		e.state = ToastVisible
		shown = []Toast{t}
	} else {
		q.queue = append(q.queue, t.ID)
		shown = q.promoteLocked()
	}
	q.mu.Unlock()

	q.show(shown)
	return true
}

func (q *Toasts) State(id string) (ToastState, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[id]
	if !ok {
		return 0, false
	}
	return e.state, true
}

func (q *Toasts) Get(id string) (Toast, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[id]
	if !ok {
		return Toast{}, false
	}
	return e.toast, true
}

// Click visible -> dismissed(click)
func (q *Toasts) Click(id string) (Toast, bool) {
	return q.dismiss(id, ToastDismissedClick)
}

// Act visible -> dismissed(action)，只对带 actions 的 toast
func (q *Toasts) Act(id string) (Toast, bool) {
	q.mu.Lock()
	e, ok := q.entries[id]
	hasActions := ok && len(e.toast.Actions) > 0
	q.mu.Unlock()
	if !hasActions {
		return Toast{}, false
	}
	return q.dismiss(id, ToastDismissedAction)
}

func (q *Toasts) timeoutFired(id string) {
	q.dismiss(id, ToastDismissedTimeout)
}

func (q *Toasts) dismiss(id string, reason ToastState) (Toast, bool) {
	q.mu.Lock()
	e, ok := q.entries[id]
	if !ok || e.state != ToastVisible {
		q.mu.Unlock()
		return Toast{}, false
	}
	e.state = reason
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	if len(e.toast.Actions) == 0 {
		q.visible--
	}
	q.dismissed = append(q.dismissed, id)
	q.pruneLocked()
	shown := q.promoteLocked()
	t := e.toast
	q.mu.Unlock()

	q.sink.DismissToast(id, reason)
	q.show(shown)
	return t, true
}

// promoteLocked 把排队的 toast 提升为 visible，返回需要渲染的
func (q *Toasts) promoteLocked() []Toast {
	var shown []Toast
	for len(q.queue) > 0 && q.visible < q.maxVisible {
		id := q.queue[0]
		q.queue = q.queue[1:]
		e := q.entries[id]
		e.state = ToastVisible
		q.visible++
		e.timer = time.AfterFunc(q.timeout, func() { q.timeoutFired(id) })
		shown = append(shown, e.toast)
	}
	return shown
}

func (q *Toasts) pruneLocked() {
	for len(q.dismissed) > keepDismissed {
		delete(q.entries, q.dismissed[0])
		q.dismissed = q.dismissed[1:]
	}
}

func (q *Toasts) show(ts []Toast) {
	for _, t := range ts {
		q.sink.ShowToast(t)
	}
}

// Close 停掉所有超时定时器；之后不再接受新 toast
func (q *Toasts) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	for _, e := range q.entries {
		if e.timer != nil {
			e.timer.Stop()
			e.timer = nil
		}
	}
}
