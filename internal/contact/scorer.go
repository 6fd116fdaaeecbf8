package contact

import "math"

// Scorer 根据档案特征计算互动优先级分数。
// 实现必须是纯函数：相同输入产生相同输出，且永不失败，
// 无法评分的输入一律映射为 0。
type Scorer interface {
	Score(followers, following, interests int) float64
}

// WeightedScorer 是默认的加权评分实现。
// 粉丝数取对数抑制头部账号，关注比例奖励"被关注多于关注"的档案，
// 兴趣标签数量封顶计入。
type WeightedScorer struct {
	FollowerWeight float64
	RatioWeight    float64
	InterestWeight float64
	MaxInterests   int
}

// NewWeightedScorer 返回带默认权重的评分器。
func NewWeightedScorer() *WeightedScorer {
	return &WeightedScorer{
		FollowerWeight: 1.0,
		RatioWeight:    0.5,
		InterestWeight: 0.3,
		MaxInterests:   10,
	}
}

// Score 实现 Scorer 接口。
func (s *WeightedScorer) Score(followers, following, interests int) float64 {
	if s == nil {
		return 0
	}
	if followers < 0 || following < 0 || interests < 0 {
		return 0
	}

	score := s.FollowerWeight * math.Log1p(float64(followers))

	ratio := float64(followers) / float64(following+1)
	score += s.RatioWeight * math.Log1p(ratio)

	capped := interests
	if s.MaxInterests > 0 && capped > s.MaxInterests {
		capped = s.MaxInterests
	}
	score += s.InterestWeight * float64(capped)

	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0
	}
	return score
}

var _ Scorer = (*WeightedScorer)(nil)
