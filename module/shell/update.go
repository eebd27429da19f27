package shell

// UpdateInfo 更新包信息
type UpdateInfo struct {
	Version      string `json:"version" mapstructure:"version"`
	ReleaseName  string `json:"release_name,omitempty" mapstructure:"release_name"`
	ReleaseNotes string `json:"release_notes,omitempty" mapstructure:"release_notes"`
	ReleaseDate  string `json:"release_date,omitempty" mapstructure:"release_date"`
}

// UpdateState 自动更新状态：Idle | Checking | Available | Downloading | Downloaded | Failed
type UpdateState interface {
	Phase() string
}

type Idle struct{}
type Checking struct{}
type Available struct{ Info UpdateInfo }
type Downloading struct{ Percent float64 }
type Downloaded struct{ Info UpdateInfo }
type Failed struct{ Reason string }

func (Idle) Phase() string        { return "idle" }
func (Checking) Phase() string    { return "checking" }
func (Available) Phase() string   { return "available" }
func (Downloading) Phase() string { return "downloading" }
func (Downloaded) Phase() string  { return "downloaded" }
func (Failed) Phase() string      { return "error" }

// 更新事件类型（与桌面壳 autoUpdater 事件一一对应）
const (
	EventChecking     = "checking"
	EventAvailable    = "available"
	EventNotAvailable = "not-available"
	EventProgress     = "progress"
	EventDownloaded   = "downloaded"
	EventError        = "error"
)

// UpdateEvent 壳上报的更新事件
type UpdateEvent struct {
	Type    string      `json:"type" mapstructure:"type"`
	Info    *UpdateInfo `json:"info,omitempty" mapstructure:"info"`
	Percent float64     `json:"percent,omitempty" mapstructure:"percent"`
	Error   string      `json:"error,omitempty" mapstructure:"error"`
}

// Reduce 唯一的状态转移函数；不认识的组合保持原状态
func Reduce(s UpdateState, ev UpdateEvent) UpdateState {
	if s == nil {
		s = Idle{}
	}
	switch ev.Type {
	case EventChecking:
		return Checking{}
	case EventAvailable:
		return Available{Info: info(ev)}
	case EventNotAvailable:
		return Idle{}
	case EventProgress:
		switch s.(type) {
		case Available, Downloading:
			return Downloading{Percent: clampPercent(ev.Percent)}
		}
		return s
	case EventDownloaded:
		return Downloaded{Info: info(ev)}
	case EventError:
		reason := ev.Error
		if reason == "" {
			reason = "unknown error"
		}
		return Failed{Reason: reason}
	}
	return s
}

func info(ev UpdateEvent) UpdateInfo {
	if ev.Info == nil {
		return UpdateInfo{}
	}
	return *ev.Info
}

func clampPercent(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// StateFrame update_state 帧
type StateFrame struct {
	Phase   string      `json:"phase"`
	Info    *UpdateInfo `json:"info,omitempty"`
	Percent float64     `json:"percent,omitempty"`
	Reason  string      `json:"reason,omitempty"`
}

func Frame(s UpdateState) StateFrame {
	f := StateFrame{Phase: s.Phase()}
	switch v := s.(type) {
	case Available:
		f.Info = &v.Info
	case Downloaded:
		f.Info = &v.Info
	case Downloading:
		f.Percent = v.Percent
	case Failed:
		f.Reason = v.Reason
	}
	return f
}
