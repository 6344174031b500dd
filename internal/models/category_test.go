package models

import (
	"testing"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		raw  string
		want Category
	}{
		{"social", CategorySocial},
		{"Social", CategorySocial},
		{"  ads  ", CategoryAds},
		{"tagmanager", CategoryTagManager},
		{"other", CategoryOther},
		{"", CategoryOther},
		{"plataforma-inconnue", CategoryOther},
	}

	for _, tc := range tests {
		if got := ParseCategory(tc.raw); got != tc.want {
			t.Errorf("ParseCategory(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestNormalizeExtraKeepsUnknownKeys(t *testing.T) {
	extra := NormalizeExtra(map[string]string{
		" Registrar ":   "GoDaddy",
		"dns_provider":  "Cloudflare",
		"champ_inconnu": "valeur",
		"":              "ignorée",
	})

	if extra["registrar"] != "GoDaddy" {
		t.Errorf("expected normalized registrar key, got %v", extra)
	}
	// Unknown keys degrade to the free-form bucket, they are never dropped
	if extra["champ_inconnu"] != "valeur" {
		t.Errorf("unknown key must be kept, got %v", extra)
	}
	if _, ok := extra[""]; ok {
		t.Error("empty key must be discarded")
	}
	if len(extra) != 3 {
		t.Errorf("expected 3 keys, got %d: %v", len(extra), extra)
	}
}

func TestNormalizeExtraEmpty(t *testing.T) {
	if got := NormalizeExtra(nil); got != nil {
		t.Errorf("NormalizeExtra(nil) = %v, want nil", got)
	}
	if got := NormalizeExtra(map[string]string{}); got != nil {
		t.Errorf("NormalizeExtra(empty) = %v, want nil", got)
	}
}

func TestKnownExtraKeysCopied(t *testing.T) {
	keys := CategoryDomain.KnownExtraKeys()
	if len(keys) == 0 {
		t.Fatal("domain category must declare known extra keys")
	}
	keys[0] = "mutated"
	if CategoryDomain.KnownExtraKeys()[0] == "mutated" {
		t.Error("KnownExtraKeys must return a copy")
	}
}
