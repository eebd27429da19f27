package errs

import "net/http"

// 通用错误码
const (
	ServerInternalError = 500
	ArgsError           = 1001
	NoPermissionError   = 1002
	RecordNotFoundError = 1004
	TokenInvalidError   = 1501
	RateLimitError      = 1601
)

// 业务错误码（2xxx 好友/消息/群组）
const (
	ValidationError       = 2000
	UsernameTakenError    = 2001
	SelfFriendRequest     = 2002
	AlreadyFriendsError   = 2003
	RequestPendingError   = 2004
	BlockedError          = 2005
	NotFriendsError       = 2006
	NotGroupAdminError    = 2101
	NotGroupMemberError   = 2102
	AdminCannotLeaveError = 2103
	UpdateNotReadyError   = 2201
)

var (
	ErrInternalServer = NewCodeError(ServerInternalError, "ServerInternalError")
	ErrArgs           = NewCodeError(ArgsError, "ArgsError")
	ErrNoPermission   = NewCodeError(NoPermissionError, "NoPermissionError")
	ErrRecordNotFound = NewCodeError(RecordNotFoundError, "RecordNotFoundError")
	ErrTokenInvalid   = NewCodeError(TokenInvalidError, "TokenInvalidError")
	ErrRateLimited    = NewCodeError(RateLimitError, "RateLimitError")

	ErrUsernameTaken     = NewCodeError(UsernameTakenError, "username already taken")
	ErrSelfFriendRequest = NewCodeError(SelfFriendRequest, "cannot send a friend request to yourself")
	ErrAlreadyFriends    = NewCodeError(AlreadyFriendsError, "already friends")
	ErrRequestPending    = NewCodeError(RequestPendingError, "friend request already pending")
	ErrBlocked           = NewCodeError(BlockedError, "conversation is blocked")
	ErrNotFriends        = NewCodeError(NotFriendsError, "not friends")
	ErrNotGroupAdmin     = NewCodeError(NotGroupAdminError, "only the group admin can do this")
	ErrNotGroupMember    = NewCodeError(NotGroupMemberError, "not a group member")
	ErrAdminCannotLeave  = NewCodeError(AdminCannotLeaveError, "group admin cannot leave the group")
	ErrUpdateNotReady    = NewCodeError(UpdateNotReadyError, "update not downloaded")
)

func init() {
	// 校验类错误都归属 ValidationError，便于前端统一按表单错误展示
	for _, c := range []int{UsernameTakenError, SelfFriendRequest, AlreadyFriendsError, RequestPendingError} {
		_ = DefaultCodeRelation.Add(ValidationError, c)
	}
	for _, c := range []int{NotGroupAdminError, NotGroupMemberError} {
		_ = DefaultCodeRelation.Add(NoPermissionError, c)
	}
}

// HTTPStatus CodeError -> HTTP 状态码
func HTTPStatus(code int) int {
	switch {
	case code == 0:
		return http.StatusOK
	case code == ArgsError:
		return http.StatusBadRequest
	case code == TokenInvalidError:
		return http.StatusUnauthorized
	case code == RateLimitError:
		return http.StatusTooManyRequests
	case code == RecordNotFoundError:
		return http.StatusNotFound
	case DefaultCodeRelation.Is(NoPermissionError, code), code == BlockedError, code == NotFriendsError:
		return http.StatusForbidden
	case code >= ValidationError && code < 3000:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
