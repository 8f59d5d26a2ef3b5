package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAndNormalize_Rejects(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"missing scheme", "paytm.com"},
		{"ftp scheme", "ftp://paytm.com"},
		{"leading space", " https://paytm.com"},
		{"inner whitespace", "https://pay tm.com"},
		{"tab in path", "https://paytm.com/a\tb"},
		{"no host", "https://"},
		{"userinfo", "https://paytm.com@evil.xyz"},
		{"percent escape", "https://pay%74m.com"},
		{"bang", "https://paytm!.com"},
		{"underscore", "https://pay_tm.com"},
		{"double hyphen", "https://paytm--secure.com"},
		{"ww prefix", "https://ww.paytm.com"},
		{"single w label", "https://w.paytm.com"},
		{"double w label", "https://WW.paytm.com"},
		{"w digit w label", "https://w1w.paytm.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateAndNormalize(tt.url)
			require.Error(t, err)
			assert.Nil(t, got)
			assert.True(t, errors.Is(err, ErrInvalidURL))

			var vErr *URLValidationError
			assert.True(t, errors.As(err, &vErr))
			assert.NotEmpty(t, vErr.Reason)
		})
	}
}

func TestValidateAndNormalize_Accepts(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		domain   string
		protocol string
	}{
		{"plain https", "https://google.com", "google.com", "https:"},
		{"plain http", "http://google.com", "google.com", "http:"},
		{"upper case", "HTTPS://WWW.Google.COM/Search?q=1", "google.com", "https:"},
		{"www stripped once", "https://www.www.example.com", "www.example.com", "https:"},
		{"punycode", "https://xn--pytm-d4a.com", "xn--pytm-d4a.com", "https:"},
		{"two label w", "https://w.com", "w.com", "https:"},
		{"path and port", "https://bit.ly:443/3xyz", "bit.ly", "https:"},
		{"single hyphen", "https://paytm-kyc-update.com", "paytm-kyc-update.com", "https:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateAndNormalize(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.domain, got.Domain)
			assert.Equal(t, tt.protocol, got.Protocol)
			assert.NotEmpty(t, got.CleanURL)
		})
	}
}
