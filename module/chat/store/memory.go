package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"DogiCord/module/chat/model"
	"DogiCord/tools/errs"
)

// Memory 内存版持久层：mongo.uri 为 memory:// 时使用（单机开发）
// 与 Mongo 实现语义一致：用户名唯一、好友集合去重、删群级联删消息
type Memory struct {
	mu       sync.Mutex
	users    map[string]*model.UserRecord
	requests map[string]*model.FriendRequest
	messages map[string]*model.Message
	groups   map[string]*model.GroupRecord
	gmsgs    map[string]*model.GroupMessage
	blocks   map[string]model.BlockRecord
	mutes    map[string]model.MutePreference

	writes int
}

func NewMemory() *Memory {
	return &Memory{
		users:    map[string]*model.UserRecord{},
		requests: map[string]*model.FriendRequest{},
		messages: map[string]*model.Message{},
		groups:   map[string]*model.GroupRecord{},
		gmsgs:    map[string]*model.GroupMessage{},
		blocks:   map[string]model.BlockRecord{},
		mutes:    map[string]model.MutePreference{},
	}
}

func addUnique(xs []string, v string) []string {
	for _, x := range xs {
		if x == v {
			return xs
		}
	}
	return append(xs, v)
}

func remove(xs []string, v string) []string {
	out := xs[:0]
	for _, x := range xs {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

func (m *Memory) CreateUser(_ context.Context, u *model.UserRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Username]; ok {
		return errs.ErrUsernameTaken.Wrap()
	}
	cp := *u
	m.users[u.Username] = &cp
	m.writes++
	return nil
}

func (m *Memory) GetUser(_ context.Context, username string) (*model.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return nil, errs.ErrRecordNotFound.WrapMsg("get user", "username", username)
	}
	cp := *u
	cp.Friends = append([]string(nil), u.Friends...)
	return &cp, nil
}

func (m *Memory) UpdatePresence(_ context.Context, username string, online bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[username]; ok && !at.Before(u.LastSeen) {
		u.Online, u.LastSeen = online, at
	}
	return nil
}

func (m *Memory) InsertRequest(_ context.Context, r *model.FriendRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.requests[r.ID] = &cp
	m.writes++
	return nil
}

func (m *Memory) GetRequest(_ context.Context, id string) (*model.FriendRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, errs.ErrRecordNotFound.WrapMsg("get request", "id", id)
	}
	cp := *r
	return &cp, nil
}

func (m *Memory) FindPendingBetween(_ context.Context, a, b string) (*model.FriendRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.requests {
		if r.Status == model.RequestPending && ((r.From == a && r.To == b) || (r.From == b && r.To == a)) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Memory) PendingFor(_ context.Context, user string) ([]model.FriendRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.FriendRequest
	for _, r := range m.requests {
		if r.To == user && r.Status == model.RequestPending {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *Memory) AcceptRequest(_ context.Context, id, from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return errs.ErrRecordNotFound.Wrap()
	}
	r.Status = model.RequestAccepted
	if u, ok := m.users[from]; ok {
		u.Friends = addUnique(u.Friends, to)
	}
	if u, ok := m.users[to]; ok {
		u.Friends = addUnique(u.Friends, from)
	}
	m.writes++
	return nil
}

func (m *Memory) DeleteRequest(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.requests[id]; !ok {
		return errs.ErrRecordNotFound.Wrap()
	}
	delete(m.requests, id)
	return nil
}

func (m *Memory) RemoveFriendship(_ context.Context, a, b string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[a]; ok {
		u.Friends = remove(u.Friends, b)
	}
	if u, ok := m.users[b]; ok {
		u.Friends = remove(u.Friends, a)
	}
	for id, r := range m.requests {
		if (r.From == a && r.To == b) || (r.From == b && r.To == a) {
			delete(m.requests, id)
		}
	}
	return nil
}

func (m *Memory) InsertMessage(_ context.Context, msg *model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *msg
	m.messages[msg.ID] = &cp
	m.writes++
	return nil
}

func (m *Memory) GetMessage(_ context.Context, id string) (*model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return nil, errs.ErrRecordNotFound.Wrap()
	}
	cp := *msg
	return &cp, nil
}

func (m *Memory) DeleteMessage(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.messages, id)
	return nil
}

func (m *Memory) MarkRead(_ context.Context, reader, peer string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, msg := range m.messages {
		if msg.From == peer && msg.To == reader && !msg.Read {
			msg.Read = true
			n++
		}
	}
	return n, nil
}

func (m *Memory) Conversation(_ context.Context, a, b string, limit int64) ([]model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Message
	for _, msg := range m.messages {
		if (msg.From == a && msg.To == b) || (msg.From == b && msg.To == a) {
			out = append(out, *msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[int64(len(out))-limit:]
	}
	return out, nil
}

func (m *Memory) InsertGroup(_ context.Context, g *model.GroupRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *g
	cp.Miembros = append([]string(nil), g.Miembros...)
	m.groups[g.ID] = &cp
	return nil
}

func (m *Memory) GetGroup(_ context.Context, id string) (*model.GroupRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[id]
	if !ok {
		return nil, errs.ErrRecordNotFound.Wrap()
	}
	cp := *g
	cp.Miembros = append([]string(nil), g.Miembros...)
	return &cp, nil
}

func (m *Memory) GroupsOf(_ context.Context, user string) ([]model.GroupRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.GroupRecord
	for _, g := range m.groups {
		if g.HasMember(user) {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (m *Memory) AddMember(_ context.Context, id, user string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[id]
	if !ok {
		return errs.ErrRecordNotFound.Wrap()
	}
	g.Miembros = addUnique(g.Miembros, user)
	return nil
}

func (m *Memory) RemoveMember(_ context.Context, id, user string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[id]
	if !ok {
		return errs.ErrRecordNotFound.Wrap()
	}
	g.Miembros = remove(g.Miembros, user)
	return nil
}

func (m *Memory) DeleteGroupCascade(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.groups[id]; !ok {
		return errs.ErrRecordNotFound.Wrap()
	}
	for mid, gm := range m.gmsgs {
		if gm.GroupID == id {
			delete(m.gmsgs, mid)
		}
	}
	delete(m.groups, id)
	return nil
}

func (m *Memory) InsertGroupMessage(_ context.Context, gm *model.GroupMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *gm
	m.gmsgs[gm.ID] = &cp
	m.writes++
	return nil
}

func (m *Memory) GroupMessages(_ context.Context, id string, limit int64) ([]model.GroupMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.GroupMessage
	for _, gm := range m.gmsgs {
		if gm.GroupID == id {
			out = append(out, *gm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[int64(len(out))-limit:]
	}
	return out, nil
}

func (m *Memory) PutBlock(_ context.Context, r *model.BlockRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocks[model.BlockID(r.Blocker, r.Blocked)] = *r
	return nil
}

func (m *Memory) DeleteBlock(_ context.Context, blocker, blocked string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blocks, model.BlockID(blocker, blocked))
	return nil
}

func (m *Memory) BlockExists(_ context.Context, blocker, blocked string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blocks[model.BlockID(blocker, blocked)]
	return ok, nil
}

func (m *Memory) BlockedBy(_ context.Context, blocker string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, b := range m.blocks {
		if b.Blocker == blocker {
			out = append(out, b.Blocked)
		}
	}
	return out, nil
}

func (m *Memory) GetMutes(_ context.Context, user string) (model.MutePreference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.mutes[user]
	if !ok {
		p = model.MutePreference{Username: user}
	}
	return p, nil
}

func (m *Memory) SetMuted(_ context.Context, user string, kind model.MuteKind, id string, muted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.mutes[user]
	p.Username = user
	if kind == model.MuteKindGroup {
		if muted {
			p.MutedGroups = addUnique(p.MutedGroups, id)
		} else {
			p.MutedGroups = remove(p.MutedGroups, id)
		}
	} else {
		if muted {
			p.MutedUsers = addUnique(p.MutedUsers, id)
		} else {
			p.MutedUsers = remove(p.MutedUsers, id)
		}
	}
	m.mutes[user] = p
	return nil
}


// Writes 写操作计数（测试用来断言“未写入”）
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
