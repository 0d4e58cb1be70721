package core

import "errors"

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX）
//
// 使用场景：
//   - Feature 错误：DATA_VALIDATION（训练数据不可修复）
//   - Training 错误：MODEL_TRAINING（分类器训练失败 / 管道未 fit）
//   - Registry 错误：VERSION_INVALID, VERSION_NOT_FOUND, VERSION_EXISTS
//   - Store 错误：NOT_FOUND, NOT_SUPPORTED
type DomainError struct {
	Code    string // 错误代码（如 "DATA_VALIDATION", "VERSION_NOT_FOUND"）
	Message string // 错误消息
	Module  string // 模块名称（如 "feature", "registry", "serving"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// IsDomainError 检查错误（或其包装链）是否为 DomainError 类型
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 从错误链中提取 DomainError，不存在时返回 nil
func GetDomainError(err error) *DomainError {
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

// 错误代码常量
const (
	// 通用错误代码
	ErrorCodeNotFound     = "NOT_FOUND"     // 资源不存在
	ErrorCodeNotSupported = "NOT_SUPPORTED" // 操作不支持
	ErrorCodeUnavailable  = "UNAVAILABLE"   // 服务不可用

	// 领域错误代码
	ErrorCodeDataValidation  = "DATA_VALIDATION"   // 输入数据不可修复（fit 阶段致命）
	ErrorCodeModelTraining   = "MODEL_TRAINING"    // 分类器训练失败 / 管道未 fit
	ErrorCodeVersionInvalid  = "VERSION_INVALID"   // 版本号格式非法
	ErrorCodeVersionNotFound = "VERSION_NOT_FOUND" // 请求的版本不存在
	ErrorCodeVersionExists   = "VERSION_EXISTS"    // 版本已存在（artifact 不可变）
)

// 模块名称常量
const (
	ModuleStore    = "store"    // 存储模块
	ModuleFeature  = "feature"  // 特征工程模块
	ModuleRegistry = "registry" // 模型版本仓库模块
	ModuleServing  = "serving"  // 在线服务模块
	ModuleDataset  = "dataset"  // 数据源模块
)

// 通用错误检查函数

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	return hasCode(err, ErrorCodeNotFound)
}

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool {
	return hasCode(err, ErrorCodeNotSupported)
}

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool {
	return hasCode(err, ErrorCodeUnavailable)
}

// IsDataValidation 检查错误是否为 DATA_VALIDATION
func IsDataValidation(err error) bool {
	return hasCode(err, ErrorCodeDataValidation)
}

// IsModelTraining 检查错误是否为 MODEL_TRAINING
func IsModelTraining(err error) bool {
	return hasCode(err, ErrorCodeModelTraining)
}

// IsVersionInvalid 检查错误是否为 VERSION_INVALID
func IsVersionInvalid(err error) bool {
	return hasCode(err, ErrorCodeVersionInvalid)
}

// IsVersionNotFound 检查错误是否为 VERSION_NOT_FOUND
func IsVersionNotFound(err error) bool {
	return hasCode(err, ErrorCodeVersionNotFound)
}

// IsVersionExists 检查错误是否为 VERSION_EXISTS
func IsVersionExists(err error) bool {
	return hasCode(err, ErrorCodeVersionExists)
}

func hasCode(err error, code string) bool {
	if err == nil {
		return false
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}
