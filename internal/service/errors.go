package service

import "errors"

// ── 跨模块业务错误 ──

var (
	ErrInvalidDate      = errors.New("日期格式无效，应为 YYYY-MM-DD")
	ErrInvalidDateRange = errors.New("日期区间无效")
)

// ConflictError 状态冲突错误，携带当前状态上下文供前端解释原因
// 例如缺席约谈次数、已存在的约谈 ID
type ConflictError struct {
	Err     error
	Context map[string]interface{}
}

func (e *ConflictError) Error() string { return e.Err.Error() }

func (e *ConflictError) Unwrap() error { return e.Err }

func newConflict(err error, ctx map[string]interface{}) error {
	return &ConflictError{Err: err, Context: ctx}
}

// ConflictContext 提取冲突上下文；非冲突错误返回 nil
func ConflictContext(err error) map[string]interface{} {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce.Context
	}
	return nil
}
