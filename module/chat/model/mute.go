package model

const CollMutes = "mutes"

// MutePreference 每用户一份
type MutePreference struct {
	Username    string   `bson:"_id" json:"username"`
	MutedGroups []string `bson:"muted_groups" json:"muted_groups"`
	MutedUsers  []string `bson:"muted_users" json:"muted_users"`
}

func (m MutePreference) GroupMuted(id string) bool {
	return contains(m.MutedGroups, id)
}

func (m MutePreference) UserMuted(name string) bool {
	return contains(m.MutedUsers, name)
}

func contains(xs []string, v string) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

// MuteKind 静音对象类型
type MuteKind string

const (
	MuteKindGroup MuteKind = "group"
	MuteKindUser  MuteKind = "user"
)

// Field 对应的数组字段
func (k MuteKind) Field() string {
	if k == MuteKindGroup {
		return "muted_groups"
	}
	return "muted_users"
}
