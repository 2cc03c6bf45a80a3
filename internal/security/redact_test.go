package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"crypto-scalper/internal/config"
)

func TestMaskCredential(t *testing.T) {
	assert.Equal(t, "", MaskCredential(""))
	assert.Equal(t, "***", MaskCredential("abc"))
	assert.Equal(t, "ab****", MaskCredential("abcdef"))
	assert.Equal(t, "PKAB********WXYZ", MaskCredential("PKAB12345678WXYZ"))
}

func TestRedact(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"header", "APCA-API-KEY-ID: PKAB12345678WXYZ", "APCA-API-KEY-ID: PKAB********WXYZ"},
		{"openai", "bad key sk-abcdefghijklmnopqrstuv", "bad key sk-a" + strings.Repeat("*", 17) + "stuv"},
		{"alpaca id", "key PKABCDEFGHIJKLMNOP rejected", "key PKAB" + strings.Repeat("*", 10) + "MNOP rejected"},
		{"query", "secret_key=abcdefghijk", "secret_key=abcd***hijk"},
		{"clean", "403 forbidden", "403 forbidden"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Redact(tc.in)
			assert.Equal(t, tc.want, got)
		})
	}
	assert.True(t, ContainsSecret("secret_key=abcdefghijk"))
	assert.False(t, ContainsSecret("403 forbidden"))
}

func TestMaskedCredentials(t *testing.T) {
	var creds config.Credentials
	creds.Alpaca.KeyID = "PKAB12345678WXYZ"
	creds.Alpaca.SecretKey = "supersecretvalue"
	creds.OpenAI.APIKey = ""

	masked := MaskedCredentials(creds)
	assert.Equal(t, "PKAB********WXYZ", masked.Alpaca.KeyID)
	assert.Equal(t, "supe********alue", masked.Alpaca.SecretKey)
	assert.Empty(t, masked.OpenAI.APIKey)
	assert.Equal(t, "PKAB12345678WXYZ", creds.Alpaca.KeyID)
}
