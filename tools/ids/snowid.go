package ids

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	nodeBits = 10
	seqBits  = 12
	maxNode  = 1<<nodeBits - 1
	seqMask  = 1<<seqBits - 1
)

// Generator 雪花ID：41 位毫秒时间戳 | 10 位节点 | 12 位序列
type Generator struct {
	mu       sync.Mutex
	epochMS  int64
	nodeID   int64
	seq      int64
	lastTSMS int64
	now      func() time.Time
}

var (
	defaultGen = NewGenerator(1, nil)
)

// NewGenerator now 为 nil 时使用 time.Now
func NewGenerator(nodeID int64, now func() time.Time) *Generator {
	if nodeID < 0 || nodeID > maxNode {
		nodeID = 1
	}
	if now == nil {
		now = time.Now
	}
	return &Generator{
		epochMS: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli(),
		nodeID:  nodeID,
		now:     now,
	}
}

// Generate 生成一个新的雪花ID
func Generate() int64 {
	return defaultGen.Next()
}

func GenerateString() string {
	return strconv.FormatInt(Generate(), 10)
}

// UUID 随机ID（toast / 请求 / 帧）
func UUID() string {
	return uuid.NewString()
}

// SetNodeID 设置 nodeID（0~1023），在 main() 初始化时调用
func SetNodeID(nodeID int64) {
	if nodeID < 0 || nodeID > maxNode {
		nodeID = 1
	}
	defaultGen.mu.Lock()
	defaultGen.nodeID = nodeID
	defaultGen.mu.Unlock()
}

func (g *Generator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now().UnixMilli()
	if now < g.lastTSMS {
		// 时钟回拨：沿用上一个时间戳继续递增序列
		now = g.lastTSMS
	}
	if now == g.lastTSMS {
		g.seq = (g.seq + 1) & seqMask
		if g.seq == 0 {
			// 序列溢出，借用下一毫秒
			now = g.lastTSMS + 1
		}
	} else {
		g.seq = 0
	}
	g.lastTSMS = now

	ts := (now - g.epochMS) & (1<<41 - 1)
	return ts<<(nodeBits+seqBits) | g.nodeID<<seqBits | g.seq
}

func (g *Generator) NextString() string {
	return strconv.FormatInt(g.Next(), 10)
}
