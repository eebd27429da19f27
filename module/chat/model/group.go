package model

import (
	"time"
)

const CollGroups = "groups"

// GroupRecord admin 一定在 miembros 中
type GroupRecord struct {
	ID        string    `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Admin     string    `bson:"admin" json:"admin"`
	Miembros  []string  `bson:"miembros" json:"miembros"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

func (g *GroupRecord) HasMember(user string) bool {
	for _, m := range g.Miembros {
		if m == user {
			return true
		}
	}
	return false
}
