package model

import (
	"time"
)

const CollBlocks = "blocks"

// BlockRecord 文档存在即屏蔽；_id = "{blocker}_{blocked}"
type BlockRecord struct {
	ID        string    `bson:"_id" json:"id"`
	Blocker   string    `bson:"blocker" json:"blocker"`
	Blocked   string    `bson:"blocked" json:"blocked"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

func BlockID(blocker, blocked string) string {
	return blocker + "_" + blocked
}
