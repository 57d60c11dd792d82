package errcode

// 错误码约定：
// - 0：无错误
// - 4xxx：业务可恢复类错误（入参非法、资源缺失、唯一性冲突）
// - 5xxx：系统错误
const (
	OK           = 0
	InvalidInput = 4000
	NotFound     = 4004
	Conflict     = 4009
	SystemError  = 5000
)
