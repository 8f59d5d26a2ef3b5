package models

import (
	"encoding/json"
	"fmt"
)

// FactorCategory groups URL risk factors for display
type FactorCategory string

const (
	FactorCategoryURLStructure FactorCategory = "url_structure"
	FactorCategoryDomain       FactorCategory = "domain"
	FactorCategoryContent      FactorCategory = "content"
	FactorCategoryTechnical    FactorCategory = "technical"
	FactorCategoryBlacklist    FactorCategory = "blacklist"
)

// RiskFactor is one triggered URL heuristic. Impact is for display only and
// never feeds the score.
type RiskFactor struct {
	Name        string         `json:"name"`
	Impact      float64        `json:"impact"`
	Description string         `json:"description"`
	Category    FactorCategory `json:"category"`
}

// URLRiskCategory represents the bucketed URL verdict
type URLRiskCategory string

const (
	URLRiskSafe       URLRiskCategory = "safe"
	URLRiskSuspicious URLRiskCategory = "suspicious"
	URLRiskDangerous  URLRiskCategory = "dangerous"
	URLRiskCritical   URLRiskCategory = "critical"
)

// Rank orders categories by severity, safe being 0
func (c URLRiskCategory) Rank() int {
	switch c {
	case URLRiskSafe:
		return 0
	case URLRiskSuspicious:
		return 1
	case URLRiskDangerous:
		return 2
	case URLRiskCritical:
		return 3
	default:
		return -1
	}
}

// ThreatType classifies what kind of threat a URL represents
type ThreatType string

const (
	ThreatTypePhishing      ThreatType = "phishing"
	ThreatTypeScam          ThreatType = "scam"
	ThreatTypeMalware       ThreatType = "malware"
	ThreatTypeFakeUPI       ThreatType = "fake_upi"
	ThreatTypeTyposquatting ThreatType = "typosquatting"
	ThreatTypeSafe          ThreatType = "safe"
	ThreatTypeUnknown       ThreatType = "unknown"
)

// URLRecommendation is the action suggested to the user
type URLRecommendation string

const (
	URLRecommendSafe    URLRecommendation = "safe"
	URLRecommendCaution URLRecommendation = "caution"
	URLRecommendBlock   URLRecommendation = "block"
)

// SSLState is true, false or unknown; it serializes as a JSON bool or the
// string "unknown".
type SSLState int

const (
	SSLUnknown SSLState = iota
	SSLValid
	SSLInvalid
)

func (s SSLState) MarshalJSON() ([]byte, error) {
	switch s {
	case SSLValid:
		return []byte("true"), nil
	case SSLInvalid:
		return []byte("false"), nil
	default:
		return []byte(`"unknown"`), nil
	}
}

func (s *SSLState) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		if b {
			*s = SSLValid
		} else {
			*s = SSLInvalid
		}
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("invalid ssl state %s", string(data))
	}
	*s = SSLUnknown
	return nil
}

// DomainAnalysis summarizes what was learned about the host
type DomainAnalysis struct {
	Domain           string   `json:"domain"`
	LegitimateDomain *string  `json:"legitimate_domain"`
	IsSuspiciousTLD  bool     `json:"is_suspicious_tld"`
	HasValidSSL      SSLState `json:"has_valid_ssl"`
}

// PhishingAnalysis is the verdict of a single URL scan
type PhishingAnalysis struct {
	URL            string            `json:"url"`
	IsPhishing     bool              `json:"is_phishing"`
	RiskScore      float64           `json:"risk_score"`
	RiskCategory   URLRiskCategory   `json:"risk_category"`
	ThreatType     ThreatType        `json:"threat_type"`
	Indicators     []string          `json:"indicators"`
	Factors        []RiskFactor      `json:"factors"`
	DomainAnalysis DomainAnalysis    `json:"domain_analysis"`
	Recommendation URLRecommendation `json:"recommendation"`
	Explanation    string            `json:"explanation"`
}

// URLScanRequest is the body of a URL scan call
type URLScanRequest struct {
	URL string `json:"url"`
}
