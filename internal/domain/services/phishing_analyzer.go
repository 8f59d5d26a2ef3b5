package services

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"upiguard/internal/domain/models"
)

// Factor names reported by the URL heuristics
const (
	FactorInvalidURL         = "Invalid URL"
	FactorBlacklisted        = "Blacklisted Domain"
	FactorInsecureProtocol   = "Insecure Protocol"
	FactorUntrustedTLD       = "Untrusted TLD"
	FactorVisualObfuscation  = "Visual Obfuscation"
	FactorBrandTyposquatting = "Brand Typosquatting"
	FactorSuspectBrand       = "Suspect Brand Usage"
	FactorURLShortener       = "URL Shortener"
)

// PhishingAnalyzer scores URLs by counting triggered heuristics
type PhishingAnalyzer struct {
	rules *PhishingRules
}

// NewPhishingAnalyzer creates an analyzer; nil rules means the defaults
func NewPhishingAnalyzer(rules *PhishingRules) *PhishingAnalyzer {
	if rules == nil {
		rules = DefaultPhishingRules()
	}
	return &PhishingAnalyzer{rules: rules}
}

// Rules returns the tables the analyzer runs against
func (a *PhishingAnalyzer) Rules() *PhishingRules {
	return a.rules
}

// AnalyzeURL validates rawURL and scores it. The verdict depends only on the
// number of heuristics that fire; factor impacts are informational.
func (a *PhishingAnalyzer) AnalyzeURL(rawURL string, isBlacklisted bool) *models.PhishingAnalysis {
	normalized, err := ValidateAndNormalize(rawURL)
	if err != nil {
		return invalidURLAnalysis(rawURL, err)
	}

	domainInfo := models.DomainAnalysis{
		Domain:          normalized.Domain,
		IsSuspiciousTLD: !a.rules.SafeTLDs[topLevelDomain(normalized.Domain)],
		HasValidSSL:     models.SSLInvalid,
	}
	if normalized.Protocol == "https:" {
		domainInfo.HasValidSSL = models.SSLValid
	}

	if isBlacklisted {
		return blacklistedAnalysis(rawURL, domainInfo)
	}

	var factors []models.RiskFactor
	brandDetected := false

	if normalized.Protocol == "http:" {
		factors = append(factors, models.RiskFactor{
			Name:        FactorInsecureProtocol,
			Impact:      0.3,
			Description: "Site does not use HTTPS, data is sent unencrypted",
			Category:    models.FactorCategoryTechnical,
		})
	}

	if domainInfo.IsSuspiciousTLD {
		factors = append(factors, models.RiskFactor{
			Name:        FactorUntrustedTLD,
			Impact:      0.4,
			Description: fmt.Sprintf("Top-level domain %s is rarely used by legitimate payment services", topLevelDomain(normalized.Domain)),
			Category:    models.FactorCategoryDomain,
		})
	}

	if f, ok := a.checkObfuscation(normalized.Domain); ok {
		factors = append(factors, f)
	}

	if f, brand, ok := a.checkBrand(normalized.Domain); ok {
		factors = append(factors, f)
		brandDetected = true
		legit := brand + ".com"
		domainInfo.LegitimateDomain = &legit
	}

	if a.rules.Shorteners[normalized.Domain] {
		factors = append(factors, models.RiskFactor{
			Name:        FactorURLShortener,
			Impact:      0.5,
			Description: "Shortened link hides the real destination",
			Category:    models.FactorCategoryURLStructure,
		})
	}

	hits := len(factors)
	score, category, recommendation := aggregateHits(hits)

	threat := models.ThreatTypeSafe
	switch {
	case brandDetected:
		threat = models.ThreatTypePhishing
	case hits >= 3:
		threat = models.ThreatTypeScam
	}

	return &models.PhishingAnalysis{
		URL:            rawURL,
		IsPhishing:     hits >= 2,
		RiskScore:      score,
		RiskCategory:   category,
		ThreatType:     threat,
		Indicators:     indicators(factors),
		Factors:        nonNilFactors(factors),
		DomainAnalysis: domainInfo,
		Recommendation: recommendation,
		Explanation:    explain(category, factors),
	}
}

// aggregateHits maps the hit count onto the score step function
func aggregateHits(hits int) (float64, models.URLRiskCategory, models.URLRecommendation) {
	switch {
	case hits >= 4:
		return math.Min(1, 0.9+0.02*float64(hits)), models.URLRiskCritical, models.URLRecommendBlock
	case hits == 3:
		return 0.75, models.URLRiskDangerous, models.URLRecommendBlock
	case hits == 2:
		return 0.45, models.URLRiskSuspicious, models.URLRecommendCaution
	default:
		return 0.05, models.URLRiskSafe, models.URLRecommendSafe
	}
}

func (a *PhishingAnalyzer) checkObfuscation(domain string) (models.RiskFactor, bool) {
	factor := models.RiskFactor{
		Name:     FactorVisualObfuscation,
		Impact:   0.9,
		Category: models.FactorCategoryURLStructure,
	}

	if strings.HasPrefix(domain, "xn--") {
		factor.Description = "Domain is punycode encoded and may render as look-alike characters"
		return factor, true
	}

	for _, r := range domain {
		if r < utf8.RuneSelf {
			continue
		}
		if ascii, ok := a.rules.Homoglyphs[r]; ok {
			factor.Description = fmt.Sprintf("Domain contains look-alike character %q imitating %q", r, ascii)
		} else {
			factor.Description = fmt.Sprintf("Domain contains non-ASCII character %q", r)
		}
		return factor, true
	}
	return factor, false
}

// checkBrand reports the first brand the domain imitates
func (a *PhishingAnalyzer) checkBrand(domain string) (models.RiskFactor, string, bool) {
	label := secondLevelLabel(domain, a.rules.SafeTLDs)

	for _, brand := range a.rules.Brands {
		if isBrandDomain(domain, brand) {
			continue
		}

		if d := Levenshtein(label, brand); d >= 1 && d <= 2 && len(brand) > 3 {
			return models.RiskFactor{
				Name:        FactorBrandTyposquatting,
				Impact:      0.95,
				Description: fmt.Sprintf("Domain name %q is a misspelling of %q", label, brand),
				Category:    models.FactorCategoryDomain,
			}, brand, true
		}

		if label != brand && strings.Contains(label, brand) {
			return models.RiskFactor{
				Name:        FactorSuspectBrand,
				Impact:      0.8,
				Description: fmt.Sprintf("Domain uses the %q brand name without belonging to it", brand),
				Category:    models.FactorCategoryContent,
			}, brand, true
		}
	}
	return models.RiskFactor{}, "", false
}

func isBrandDomain(domain, brand string) bool {
	for _, official := range []string{brand + ".com", brand + ".in"} {
		if domain == official || strings.HasSuffix(domain, "."+official) {
			return true
		}
	}
	return false
}

// topLevelDomain returns the final label with its leading dot
func topLevelDomain(domain string) string {
	if i := strings.LastIndex(domain, "."); i >= 0 {
		return domain[i:]
	}
	return "." + domain
}

// secondLevelLabel returns the registrable label, looking past two-label
// suffixes such as .co.in.
func secondLevelLabel(domain string, safeTLDs map[string]bool) string {
	labels := strings.Split(domain, ".")
	n := len(labels)
	switch {
	case n >= 3 && safeTLDs["."+labels[n-2]+"."+labels[n-1]]:
		return labels[n-3]
	case n >= 2:
		return labels[n-2]
	default:
		return labels[0]
	}
}

func invalidURLAnalysis(rawURL string, err error) *models.PhishingAnalysis {
	factor := models.RiskFactor{
		Name:        FactorInvalidURL,
		Impact:      1,
		Description: err.Error(),
		Category:    models.FactorCategoryURLStructure,
	}
	return &models.PhishingAnalysis{
		URL:            rawURL,
		IsPhishing:     true,
		RiskScore:      1,
		RiskCategory:   models.URLRiskCritical,
		ThreatType:     models.ThreatTypeUnknown,
		Indicators:     []string{factor.Description},
		Factors:        []models.RiskFactor{factor},
		DomainAnalysis: models.DomainAnalysis{HasValidSSL: models.SSLUnknown},
		Recommendation: models.URLRecommendBlock,
		Explanation:    "Critical risk: URL failed validation: " + err.Error(),
	}
}

func blacklistedAnalysis(rawURL string, domainInfo models.DomainAnalysis) *models.PhishingAnalysis {
	factor := models.RiskFactor{
		Name:        FactorBlacklisted,
		Impact:      1,
		Description: fmt.Sprintf("Domain %s is on the fraud blacklist", domainInfo.Domain),
		Category:    models.FactorCategoryBlacklist,
	}
	return &models.PhishingAnalysis{
		URL:            rawURL,
		IsPhishing:     true,
		RiskScore:      1,
		RiskCategory:   models.URLRiskCritical,
		ThreatType:     models.ThreatTypePhishing,
		Indicators:     []string{factor.Description},
		Factors:        []models.RiskFactor{factor},
		DomainAnalysis: domainInfo,
		Recommendation: models.URLRecommendBlock,
		Explanation:    "Critical risk: domain is blacklisted",
	}
}

func indicators(factors []models.RiskFactor) []string {
	out := make([]string, 0, len(factors))
	for _, f := range factors {
		out = append(out, f.Description)
	}
	return out
}

func nonNilFactors(factors []models.RiskFactor) []models.RiskFactor {
	if factors == nil {
		return []models.RiskFactor{}
	}
	return factors
}

func explain(category models.URLRiskCategory, factors []models.RiskFactor) string {
	label := strings.ToUpper(string(category[:1])) + string(category[1:])
	if len(factors) == 0 {
		return label + " risk: 0 indicators detected"
	}
	names := make([]string, 0, len(factors))
	for _, f := range factors {
		names = append(names, f.Name)
	}
	return fmt.Sprintf("%s risk: %d indicator(s) detected: %s", label, len(factors), strings.Join(names, ", "))
}
