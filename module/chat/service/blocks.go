package service

import (
	"context"

	"DogiCord/module/chat/model"
	"DogiCord/service/kafka"
	"DogiCord/tools/errs"
)

type BlockService struct {
	d *Deps
}

// BlockStatus 会话输入框是否可用
type BlockStatus struct {
	BlockedByMe bool `json:"blocked_by_me"`
	BlockedMe   bool `json:"blocked_me"`
	CanMessage  bool `json:"can_message"`
}

func (s *BlockService) Block(ctx context.Context, blocker, blocked string) error {
	if err := required("blocker", blocker, "blocked", blocked); err != nil {
		return err
	}
	if blocker == blocked {
		return errs.ErrArgs.WrapMsg("cannot block yourself")
	}
	if _, err := s.d.Users.GetUser(ctx, blocked); err != nil {
		return err
	}
	now := s.d.Clock()
	if err := s.d.Blocks.PutBlock(ctx, &model.BlockRecord{Blocker: blocker, Blocked: blocked, Timestamp: now}); err != nil {
		return err
	}
	s.d.Log.Record(ctx, ConvKey(blocker, blocked), kafka.Activity{Kind: "user_blocked", Actor: blocker, Target: blocked, At: now})
	return nil
}

func (s *BlockService) Unblock(ctx context.Context, blocker, blocked string) error {
	if err := required("blocker", blocker, "blocked", blocked); err != nil {
		return err
	}
	if err := s.d.Blocks.DeleteBlock(ctx, blocker, blocked); err != nil {
		return err
	}
	s.d.Log.Record(ctx, ConvKey(blocker, blocked), kafka.Activity{Kind: "user_unblocked", Actor: blocker, Target: blocked, At: s.d.Clock()})
	return nil
}

func (s *BlockService) Status(ctx context.Context, viewer, peer string) (BlockStatus, error) {
	var st BlockStatus
	var err error
	if st.BlockedByMe, err = s.d.Blocks.BlockExists(ctx, viewer, peer); err != nil {
		return st, err
	}
	if st.BlockedMe, err = s.d.Blocks.BlockExists(ctx, peer, viewer); err != nil {
		return st, err
	}
	st.CanMessage = !st.BlockedByMe && !st.BlockedMe
	return st, nil
}

// IsBlocked 任一方向存在屏蔽即为 true
func (s *BlockService) IsBlocked(ctx context.Context, a, b string) (bool, error) {
	st, err := s.Status(ctx, a, b)
	if err != nil {
		return false, err
	}
	return !st.CanMessage, nil
}

// Check 屏蔽时返回 ErrBlocked
func (s *BlockService) Check(ctx context.Context, a, b string) error {
	blocked, err := s.IsBlocked(ctx, a, b)
	if err != nil {
		return err
	}
	if blocked {
		return errs.ErrBlocked.WrapMsg("", "a", a, "b", b)
	}
	return nil
}

func (s *BlockService) Blocked(ctx context.Context, user string) ([]string, error) {
	if err := required("user", user); err != nil {
		return nil, err
	}
	return s.d.Blocks.BlockedBy(ctx, user)
}
