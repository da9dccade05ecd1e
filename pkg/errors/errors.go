package errors

import "errors"

var (
	// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
	ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

	// ErrConditionalUpdate 条件更新未命中任何行（状态已被其他请求改变或记录不存在）
	ErrConditionalUpdate = errors.New("条件更新未命中任何记录")
)
