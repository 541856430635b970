package core

import (
	"errors"
	"fmt"
)

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有输入校验、资源缺失类错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX），可穿透 fmt.Errorf("%w") 包装
//
// 使用场景：
//   - schema：AMBIGUOUS_COLUMN, MISSING_COLUMN
//   - split：INSUFFICIENT_POPULATION, INVALID_RATIO
//   - minimize：UNSUPPORTED_STRATEGY
//   - dataset：NOT_FOUND
type DomainError struct {
	Code    string // 错误代码（如 "MISSING_COLUMN"）
	Message string // 错误消息
	Module  string // 模块名称（如 "schema", "split"）
	Err     error  // 底层错误，可为 nil
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// IsDomainError 检查错误链中是否存在 DomainError
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取错误链中的第一个 DomainError，如果不存在则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// Errorf 按格式创建领域错误
func Errorf(module, code, format string, args ...any) *DomainError {
	return NewDomainError(module, code, fmt.Sprintf(format, args...))
}

// WrapDomainError 创建携带底层错误的领域错误
func WrapDomainError(module, code, message string, err error) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// 错误代码常量
const (
	// 输入校验
	ErrorCodeAmbiguousColumn        = "AMBIGUOUS_COLUMN"        // 关键字匹配到多列
	ErrorCodeMissingColumn          = "MISSING_COLUMN"          // 关键字没有匹配到列 / 必需列缺失
	ErrorCodeInsufficientPopulation = "INSUFFICIENT_POPULATION" // 唯一实体数不足
	ErrorCodeInvalidRatio           = "INVALID_RATIO"           // 划分比例非法
	ErrorCodeUnsupportedStrategy    = "UNSUPPORTED_STRATEGY"    // 未实现的最小化策略
	ErrorCodeInvalidInput           = "INVALID_INPUT"           // 输入无效
	ErrorCodeInvalidConfig          = "INVALID_CONFIG"          // 配置无效

	// 资源与外部调用
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用
	ErrorCodeExternal      = "EXTERNAL"       // 外部实验框架执行失败
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误
)

// 模块名称常量
const (
	ModuleSchema     = "schema"
	ModuleFilter     = "filter"
	ModuleSplit      = "split"
	ModuleMinimize   = "minimize"
	ModuleDataset    = "dataset"
	ModuleFeature    = "feature"
	ModuleExperiment = "experiment"
	ModuleConfig     = "config"
	ModuleStore      = "store"
)

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsAmbiguousColumn 检查错误是否为 AMBIGUOUS_COLUMN
func IsAmbiguousColumn(err error) bool { return hasCode(err, ErrorCodeAmbiguousColumn) }

// IsMissingColumn 检查错误是否为 MISSING_COLUMN
func IsMissingColumn(err error) bool { return hasCode(err, ErrorCodeMissingColumn) }

// IsInsufficientPopulation 检查错误是否为 INSUFFICIENT_POPULATION
func IsInsufficientPopulation(err error) bool {
	return hasCode(err, ErrorCodeInsufficientPopulation)
}

// IsInvalidRatio 检查错误是否为 INVALID_RATIO
func IsInvalidRatio(err error) bool { return hasCode(err, ErrorCodeInvalidRatio) }

// IsUnsupportedStrategy 检查错误是否为 UNSUPPORTED_STRATEGY
func IsUnsupportedStrategy(err error) bool { return hasCode(err, ErrorCodeUnsupportedStrategy) }

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool { return hasCode(err, ErrorCodeInvalidInput) }

// IsInvalidConfig 检查错误是否为 INVALID_CONFIG
func IsInvalidConfig(err error) bool { return hasCode(err, ErrorCodeInvalidConfig) }

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool { return hasCode(err, ErrorCodeNotFound) }

// IsExternal 检查错误是否为 EXTERNAL
func IsExternal(err error) bool { return hasCode(err, ErrorCodeExternal) }
