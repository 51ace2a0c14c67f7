package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrLockNotAcquired 分布式锁在等待时间内未获取成功
var ErrLockNotAcquired = errors.New("资源正被其他操作占用，请稍后重试")
