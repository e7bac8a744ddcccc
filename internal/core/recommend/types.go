package recommend

import (
	"recipe-recommender/internal/pkg/common"
)

// Recommendation 推薦結果
type Recommendation struct {
	Title     string              `json:"title"`
	Recipe    *common.Recipe      `json:"recipe"`
	Quality   common.MatchQuality `json:"match_quality"`
	Reasoning string              `json:"reasoning,omitempty"`
	Degraded  bool                `json:"degraded,omitempty"`
}
