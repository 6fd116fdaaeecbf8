package contact

import (
	"encoding/json"
	"strings"
)

// DeliveryContext 保存了日后向某个档案投递消息所需的全部信息。
// 内容对存储层不透明，整体序列化为 JSON 落库。
type DeliveryContext struct {
	AuthToken       string `json:"auth_token"`
	ProfileEndpoint string `json:"profile_endpoint"`
	MessageEndpoint string `json:"message_endpoint"`
}

// Encode 将投递上下文序列化为存储层使用的 JSON 字符串。
func (d DeliveryContext) Encode() (string, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// DecodeDeliveryContext 从存储层读回投递上下文。
func DecodeDeliveryContext(raw string) (DeliveryContext, error) {
	var ctx DeliveryContext
	if strings.TrimSpace(raw) == "" {
		return ctx, nil
	}
	if err := json.Unmarshal([]byte(raw), &ctx); err != nil {
		return DeliveryContext{}, err
	}
	return ctx, nil
}

// Candidate 表示本轮从 Lens 拉取、尚未持久化的候选档案。
type Candidate struct {
	ProfileID       string
	Handle          string
	DisplayName     string
	Followers       int
	Following       int
	InterestCount   int
	DeliveryContext DeliveryContext
	PriorityScore   float64
}

// Record 表示一条持久化的外呼记录。
// 记录只写入一次，之后只有 DeliveredAt 会被更新。
type Record struct {
	ProfileID       string          `json:"profile_id"`
	Handle          string          `json:"handle"`
	DisplayName     string          `json:"display_name"`
	Followers       int             `json:"followers"`
	Following       int             `json:"following"`
	InterestCount   int             `json:"interest_count"`
	DeliveryContext DeliveryContext `json:"delivery_context"`
	PriorityScore   float64         `json:"priority_score"`
	CreatedAt       int64           `json:"created_at"`
	// DeliveredAt 为 0 表示尚未确认任何一次成功投递。
	DeliveredAt int64 `json:"delivered_at,omitempty"`
}

// Delivered 判断该记录是否已确认过至少一次成功投递。
func (r *Record) Delivered() bool {
	return r != nil && r.DeliveredAt > 0
}

// RecordOf 将候选档案转换为待持久化的外呼记录。
func RecordOf(candidate Candidate) *Record {
	return &Record{
		ProfileID:       candidate.ProfileID,
		Handle:          candidate.Handle,
		DisplayName:     candidate.DisplayName,
		Followers:       candidate.Followers,
		Following:       candidate.Following,
		InterestCount:   candidate.InterestCount,
		DeliveryContext: candidate.DeliveryContext,
		PriorityScore:   candidate.PriorityScore,
	}
}
