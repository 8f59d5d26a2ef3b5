package services

import "strings"

// PhishingRules holds the lookup tables the URL heuristics run against.
// They are plain data so they can be extended from configuration.
type PhishingRules struct {
	SafeTLDs   map[string]bool
	Brands     []string
	Shorteners map[string]bool
	// Homoglyphs maps look-alike characters to the ASCII letter they imitate
	Homoglyphs map[rune]rune
}

var defaultSafeTLDs = []string{
	".com", ".in", ".co.in", ".org", ".net", ".edu", ".gov", ".mil",
	".ac.in", ".gov.in", ".nic.in", ".res.in", ".int",
}

// Brands commonly impersonated in Indian payment fraud. Order matters: the
// first brand that matches is the one reported.
var defaultBrands = []string{
	// payment apps
	"paytm", "phonepe", "gpay", "googlepay", "bhim", "npci", "mobikwik", "freecharge", "amazonpay",
	// banks
	"sbi", "hdfc", "icici", "axisbank", "kotak", "yesbank", "pnb", "bankofbaroda",
	"canarabank", "unionbank", "indusind", "idfcfirst", "federalbank",
	// e-commerce and delivery
	"amazon", "flipkart", "myntra", "snapdeal", "meesho", "swiggy", "zomato",
	// telecom and government
	"airtel", "jio", "irctc", "uidai", "incometax",
	// tech and social
	"google", "microsoft", "apple", "facebook", "instagram", "whatsapp", "netflix", "paypal",
}

var defaultShorteners = []string{
	"bit.ly", "tinyurl.com", "t.co", "goo.gl", "ow.ly", "is.gd",
	"buff.ly", "rb.gy", "cutt.ly", "shorturl.at", "tiny.cc", "rebrand.ly",
}

var defaultHomoglyphs = map[rune]rune{
	// Cyrillic
	'а': 'a', 'е': 'e', 'о': 'o', 'р': 'p', 'с': 'c', 'у': 'y', 'х': 'x',
	'і': 'i', 'ј': 'j', 'ѕ': 's', 'һ': 'h', 'ԁ': 'd', 'ԛ': 'q', 'ԝ': 'w',
	// Greek
	'α': 'a', 'ο': 'o', 'ρ': 'p', 'ν': 'v', 'τ': 't', 'ι': 'i', 'κ': 'k',
	// Latin look-alikes and fullwidth digits
	'ı': 'i', 'ł': 'l', 'ɡ': 'g', 'ɑ': 'a', 'ǀ': 'l',
	'０': '0', '１': '1', '３': '3', '５': '5',
}

// DefaultPhishingRules returns a fresh copy of the built-in tables
func DefaultPhishingRules() *PhishingRules {
	r := &PhishingRules{
		SafeTLDs:   make(map[string]bool, len(defaultSafeTLDs)),
		Brands:     append([]string(nil), defaultBrands...),
		Shorteners: make(map[string]bool, len(defaultShorteners)),
		Homoglyphs: make(map[rune]rune, len(defaultHomoglyphs)),
	}
	for _, tld := range defaultSafeTLDs {
		r.SafeTLDs[tld] = true
	}
	for _, s := range defaultShorteners {
		r.Shorteners[s] = true
	}
	for k, v := range defaultHomoglyphs {
		r.Homoglyphs[k] = v
	}
	return r
}

// WithBrands appends extra brand names, skipping duplicates
func (r *PhishingRules) WithBrands(brands ...string) *PhishingRules {
	seen := make(map[string]bool, len(r.Brands))
	for _, b := range r.Brands {
		seen[b] = true
	}
	for _, b := range brands {
		b = strings.ToLower(strings.TrimSpace(b))
		if b == "" || seen[b] {
			continue
		}
		seen[b] = true
		r.Brands = append(r.Brands, b)
	}
	return r
}

// WithShorteners adds extra shortener domains
func (r *PhishingRules) WithShorteners(domains ...string) *PhishingRules {
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			r.Shorteners[d] = true
		}
	}
	return r
}
