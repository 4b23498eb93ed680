package constants

// gin 上下文键
const (
	ContextUserID    = "userID"    // 内部用户ID (uint)
	ContextUser      = "user"      // *model.User
	ContextRequestID = "requestID" // 请求ID
)

// 实时消息类型常量
const (
	MessageTypeNotification = "notification"
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
	MessageTypeConnected    = "connected"
)

// 推荐操作
const (
	SuggestionActionAccept = "accept"
	SuggestionActionReject = "reject"
)

// 观影清单状态
const (
	WatchlistStatusDesired = "desired"
	WatchlistStatusWatched = "watched"
)

// 评分范围
const (
	MinDesireRating = 1
	MaxDesireRating = 10
	MinWatchScore   = 0
	MaxWatchScore   = 10
)

// 分页
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Redis键前缀
const (
	RedisKeySession      = "session:%s"
	RedisKeyUserRegistry = "user_registry:%d"
	RedisKeyServerUsers  = "server_users:%s"
)

// 对外错误信息
const (
	ErrNotAuthorized   = "not authorized"
	ErrUnauthenticated = "authentication required"
	ErrInternal        = "internal server error"
	ErrMovieNotFound   = "movie not found"
	ErrUserNotFound    = "user not found"
	ErrSuggestionNF    = "suggestion not found"
	ErrDesireNF        = "watch desire not found"
	ErrHistoryNF       = "history entry not found"
	ErrFriendshipNF    = "friend request not found"
	ErrEventNotFound   = "event not found"
	ErrNotificationNF  = "notification not found"
	ErrCatalogFailure  = "movie catalog unavailable"
)
