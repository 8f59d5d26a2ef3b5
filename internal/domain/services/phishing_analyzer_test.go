package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upiguard/internal/domain/models"
)

func factorNames(a *models.PhishingAnalysis) []string {
	names := make([]string, 0, len(a.Factors))
	for _, f := range a.Factors {
		names = append(names, f.Name)
	}
	return names
}

func TestAnalyzeURL_SecureKnownDomainIsSafe(t *testing.T) {
	analyzer := NewPhishingAnalyzer(nil)

	result := analyzer.AnalyzeURL("https://google.com", false)

	assert.Equal(t, models.URLRiskSafe, result.RiskCategory)
	assert.Equal(t, models.URLRecommendSafe, result.Recommendation)
	assert.False(t, result.IsPhishing)
	assert.Empty(t, result.Factors)
	assert.Equal(t, 0.05, result.RiskScore)
	assert.Equal(t, models.ThreatTypeSafe, result.ThreatType)
	assert.Equal(t, models.SSLValid, result.DomainAnalysis.HasValidSSL)
	assert.Nil(t, result.DomainAnalysis.LegitimateDomain)
}

func TestAnalyzeURL_InsecureProtocolAloneStaysSafe(t *testing.T) {
	analyzer := NewPhishingAnalyzer(nil)

	result := analyzer.AnalyzeURL("http://google.com", false)

	assert.Equal(t, []string{FactorInsecureProtocol}, factorNames(result))
	assert.Equal(t, models.URLRiskSafe, result.RiskCategory)
	assert.Equal(t, models.URLRecommendSafe, result.Recommendation)
	assert.False(t, result.IsPhishing)
	assert.Equal(t, models.SSLInvalid, result.DomainAnalysis.HasValidSSL)
}

func TestAnalyzeURL_BrandSubstring(t *testing.T) {
	analyzer := NewPhishingAnalyzer(nil)

	result := analyzer.AnalyzeURL("https://paytm-kyc-update.com", false)

	assert.Contains(t, factorNames(result), FactorSuspectBrand)
	assert.Equal(t, models.ThreatTypePhishing, result.ThreatType)
	require.NotNil(t, result.DomainAnalysis.LegitimateDomain)
	assert.Equal(t, "paytm.com", *result.DomainAnalysis.LegitimateDomain)

	// a second trigger escalates past safe
	escalated := analyzer.AnalyzeURL("http://paytm-kyc-update.com", false)
	assert.Equal(t, models.URLRiskSuspicious, escalated.RiskCategory)
	assert.Equal(t, models.URLRecommendCaution, escalated.Recommendation)
	assert.True(t, escalated.IsPhishing)
}

func TestAnalyzeURL_Typosquatting(t *testing.T) {
	analyzer := NewPhishingAnalyzer(nil)

	result := analyzer.AnalyzeURL("https://paytn.com/login", false)

	assert.Equal(t, []string{FactorBrandTyposquatting}, factorNames(result))
	assert.Equal(t, models.ThreatTypePhishing, result.ThreatType)
}

func TestAnalyzeURL_OfficialBrandDomainsSkipped(t *testing.T) {
	analyzer := NewPhishingAnalyzer(nil)

	for _, u := range []string{"https://paytm.com", "https://www.sbi.co.in", "https://mail.google.com", "https://bhim.in"} {
		result := analyzer.AnalyzeURL(u, false)
		assert.NotContains(t, factorNames(result), FactorBrandTyposquatting, u)
		assert.NotContains(t, factorNames(result), FactorSuspectBrand, u)
		assert.Equal(t, models.URLRiskSafe, result.RiskCategory, u)
	}
}

func TestAnalyzeURL_Shortener(t *testing.T) {
	analyzer := NewPhishingAnalyzer(nil)

	result := analyzer.AnalyzeURL("https://bit.ly/3xyz", false)

	assert.Contains(t, factorNames(result), FactorURLShortener)
	assert.NotEqual(t, models.URLRecommendSafe, result.Recommendation)
	// .ly is untrusted and "bit" is within two edits of "bhim"
	assert.Equal(t, 3, len(result.Factors))
	assert.Equal(t, models.URLRiskDangerous, result.RiskCategory)
	assert.Equal(t, 0.75, result.RiskScore)
}

func TestAnalyzeURL_UntrustedTLD(t *testing.T) {
	analyzer := NewPhishingAnalyzer(nil)

	result := analyzer.AnalyzeURL("https://secure-login.xyz", false)

	assert.Equal(t, []string{FactorUntrustedTLD}, factorNames(result))
	assert.True(t, result.DomainAnalysis.IsSuspiciousTLD)
}

func TestAnalyzeURL_Obfuscation(t *testing.T) {
	analyzer := NewPhishingAnalyzer(nil)

	punycode := analyzer.AnalyzeURL("https://xn--pytm-d4a.com", false)
	assert.Contains(t, factorNames(punycode), FactorVisualObfuscation)

	// Cyrillic "а" in place of the Latin "a"
	homoglyph := analyzer.AnalyzeURL("http://pаytm.xyz", false)
	assert.Equal(t, []string{FactorInsecureProtocol, FactorUntrustedTLD, FactorVisualObfuscation, FactorBrandTyposquatting}, factorNames(homoglyph))
	assert.Equal(t, models.URLRiskCritical, homoglyph.RiskCategory)
	assert.Equal(t, models.URLRecommendBlock, homoglyph.Recommendation)
	assert.InDelta(t, 0.98, homoglyph.RiskScore, 1e-9)
}

func TestAnalyzeURL_ScoreClampedAtFiveHits(t *testing.T) {
	analyzer := NewPhishingAnalyzer(DefaultPhishingRules().WithShorteners("pаytm.xyz"))

	result := analyzer.AnalyzeURL("http://pаytm.xyz/r", false)

	assert.Len(t, result.Factors, 5)
	assert.Equal(t, 1.0, result.RiskScore)
	assert.Equal(t, models.URLRiskCritical, result.RiskCategory)
}

func TestAnalyzeURL_ThreeHitsWithoutBrandIsScam(t *testing.T) {
	analyzer := NewPhishingAnalyzer(nil)

	result := analyzer.AnalyzeURL("http://xn--e1afmkfd.xyz", false)

	assert.Len(t, result.Factors, 3)
	assert.Equal(t, models.ThreatTypeScam, result.ThreatType)
	assert.Equal(t, models.URLRecommendBlock, result.Recommendation)
}

func TestAnalyzeURL_InvalidInputFailsClosed(t *testing.T) {
	analyzer := NewPhishingAnalyzer(nil)

	for _, u := range []string{"", "paytm.com", "https://pay_tm.com", "https://paytm--secure.com", "https://w1w.paytm.com"} {
		result := analyzer.AnalyzeURL(u, false)
		assert.Equal(t, models.URLRiskCritical, result.RiskCategory, u)
		assert.Equal(t, models.URLRecommendBlock, result.Recommendation, u)
		assert.Equal(t, 1.0, result.RiskScore, u)
		require.Len(t, result.Factors, 1, u)
		assert.Equal(t, models.FactorCategoryURLStructure, result.Factors[0].Category)
		assert.Equal(t, models.SSLUnknown, result.DomainAnalysis.HasValidSSL)
	}
}

func TestAnalyzeURL_BlacklistShortCircuits(t *testing.T) {
	analyzer := NewPhishingAnalyzer(nil)

	result := analyzer.AnalyzeURL("https://google.com", true)

	assert.Equal(t, models.URLRiskCritical, result.RiskCategory)
	assert.Equal(t, models.URLRecommendBlock, result.Recommendation)
	assert.Equal(t, 1.0, result.RiskScore)
	assert.Equal(t, []string{FactorBlacklisted}, factorNames(result))
	assert.True(t, result.IsPhishing)
}

func TestAnalyzeURL_Properties(t *testing.T) {
	analyzer := NewPhishingAnalyzer(nil)
	urls := []string{
		"https://google.com",
		"http://google.com",
		"https://paytm-kyc-update.com",
		"http://paytm-kyc-update.xyz",
		"https://bit.ly/3xyz",
		"https://tinyurl.com/abc",
		"http://paypa1.tk",
		"http://pаytm.xyz",
		"https://secure-login.xyz",
		"https://phonepay.top",
	}

	results := make([]*models.PhishingAnalysis, 0, len(urls))
	for _, u := range urls {
		r := analyzer.AnalyzeURL(u, false)
		results = append(results, r)

		assert.Equal(t, len(r.Factors) >= 2, r.IsPhishing, u)
		assert.GreaterOrEqual(t, r.RiskScore, 0.0)
		assert.LessOrEqual(t, r.RiskScore, 1.0)

		again := analyzer.AnalyzeURL(u, false)
		assert.Equal(t, r, again, "scan of %s is not idempotent", u)

		if r.RiskCategory != models.URLRiskSafe {
			assert.NotEmpty(t, r.Factors, u)
		}
	}

	for i, a := range results {
		for j, b := range results {
			if len(a.Factors) > len(b.Factors) {
				assert.GreaterOrEqual(t, a.RiskCategory.Rank(), b.RiskCategory.Rank(), "%s vs %s", urls[i], urls[j])
			}
		}
	}
}

func TestAnalyzeURL_Explanation(t *testing.T) {
	analyzer := NewPhishingAnalyzer(nil)

	result := analyzer.AnalyzeURL("http://paytm-kyc-update.com", false)

	assert.Equal(t, "Suspicious risk: 2 indicator(s) detected: Insecure Protocol, Suspect Brand Usage", result.Explanation)
}

func TestPhishingAnalysis_JSON(t *testing.T) {
	analyzer := NewPhishingAnalyzer(nil)

	body, err := json.Marshal(analyzer.AnalyzeURL("not a url", false))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	domain := decoded["domain_analysis"].(map[string]any)
	assert.Equal(t, "unknown", domain["has_valid_ssl"])
	assert.Nil(t, domain["legitimate_domain"])
	assert.Equal(t, "critical", decoded["risk_category"])
}
