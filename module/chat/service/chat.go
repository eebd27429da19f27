package service

import (
	"regexp"
	"strings"

	"DogiCord/tools/errs"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
	maxTextLen      = 4000
)

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_.\-]{3,32}$`)

// Chat 所有聊天用例的入口
type Chat struct {
	Users    *UserService
	Friends  *FriendService
	Messages *MessageService
	Groups   *GroupService
	Blocks   *BlockService
	Mutes    *MuteService
	Images   *ImageService
}

func New(d Deps) *Chat {
	dp := &d
	dp.norm()
	blocks := &BlockService{d: dp}
	return &Chat{
		Users:    &UserService{d: dp},
		Friends:  &FriendService{d: dp, blocks: blocks},
		Messages: &MessageService{d: dp, blocks: blocks},
		Groups:   &GroupService{d: dp},
		Blocks:   blocks,
		Mutes:    &MuteService{d: dp},
		Images:   &ImageService{d: dp},
	}
}

func pageSize(limit int64) int64 {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}

func required(kv ...string) error {
	for i := 0; i+1 < len(kv); i += 2 {
		if strings.TrimSpace(kv[i+1]) == "" {
			return errs.ErrArgs.WrapMsg(kv[i] + " is empty")
		}
	}
	return nil
}

// checkBody 文本和图片至少一个
func checkBody(text, imageKey, from string) error {
	if strings.TrimSpace(text) == "" && imageKey == "" {
		return errs.ErrArgs.WrapMsg("message is empty")
	}
	if len(text) > maxTextLen {
		return errs.ErrArgs.WrapMsg("message too long", "len", len(text), "max", maxTextLen)
	}
	if imageKey != "" && !strings.HasPrefix(imageKey, "images/"+from+"/") {
		return errs.ErrNoPermission.WrapMsg("image belongs to another user", "key", imageKey)
	}
	return nil
}
