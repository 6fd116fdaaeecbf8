// Package lens 封装对 Lens GraphQL API 的两类调用：
// 拉取候选档案（只读）与发送站内消息（写入）。
// 客户端只做单次调用，重试策略由外呼循环决定。
package lens

import (
	xerrors "LensPeer/internal/errors"
)

const (
	// CodeSourceUnavailable 表示拉取档案时的传输或 HTTP 层故障，可重试。
	CodeSourceUnavailable xerrors.Code = "SOURCE_UNAVAILABLE"
	// CodeSourceMalformed 表示响应无法解析为预期结构，重试无意义。
	CodeSourceMalformed xerrors.Code = "SOURCE_MALFORMED"
	// CodeDeliveryRejected 表示对端拒绝了请求本身（4xx），原样重试无意义。
	CodeDeliveryRejected xerrors.Code = "DELIVERY_REJECTED"
	// CodeDeliveryTransient 表示网络或 5xx 故障，可安全重试。
	CodeDeliveryTransient xerrors.Code = "DELIVERY_TRANSIENT"
	// CodeDeliveryUnauthorized 表示凭证失效，在刷新凭证前持续致命。
	CodeDeliveryUnauthorized xerrors.Code = "DELIVERY_UNAUTHORIZED"
)

func init() {
	xerrors.Register(CodeSourceUnavailable, xerrors.Attributes{
		Message:   "profile source unavailable",
		Severity:  xerrors.SeverityWarning,
		Retryable: true,
		Alert:     false,
	})
	xerrors.Register(CodeSourceMalformed, xerrors.Attributes{
		Message:   "profile source returned malformed payload",
		Severity:  xerrors.SeverityWarning,
		Retryable: false,
		Alert:     true,
	})
	xerrors.Register(CodeDeliveryRejected, xerrors.Attributes{
		Message:   "message rejected by lens api",
		Severity:  xerrors.SeverityWarning,
		Retryable: false,
		Alert:     false,
	})
	xerrors.Register(CodeDeliveryTransient, xerrors.Attributes{
		Message:   "transient delivery failure",
		Severity:  xerrors.SeverityWarning,
		Retryable: true,
		Alert:     false,
	})
	xerrors.Register(CodeDeliveryUnauthorized, xerrors.Attributes{
		Message:   "lens credential rejected",
		Severity:  xerrors.SeverityCritical,
		Retryable: false,
		Alert:     true,
	})
}
