package models

import (
	"strings"
)

// Category classe un identifiant par type de plateforme
type Category string

// Catégories reconnues. Toute valeur inconnue est rabattue sur CategoryOther.
const (
	CategorySocial     Category = "social"
	CategoryAds        Category = "ads"
	CategoryEmail      Category = "email"
	CategoryDomain     Category = "domain"
	CategoryHosting    Category = "hosting"
	CategoryCMS        Category = "cms"
	CategoryAnalytics  Category = "analytics"
	CategoryTagManager Category = "tagmanager"
	CategoryMessaging  Category = "messaging"
	CategoryOther      Category = "other"
)

// categoryExtraKeys liste, par catégorie, les champs supplémentaires connus.
// Sert uniquement à la normalisation: les clés inconnues sont conservées
// telles quelles dans le fourre-tout libre, jamais supprimées.
var categoryExtraKeys = map[Category][]string{
	CategorySocial:     {"profile_url", "page_id", "business_manager"},
	CategoryAds:        {"account_id", "business_manager", "billing_profile"},
	CategoryEmail:      {"workspace_domain", "admin_console_url"},
	CategoryDomain:     {"registrar", "dns_provider", "expiry_date"},
	CategoryHosting:    {"panel_url", "server", "ftp_host"},
	CategoryCMS:        {"admin_url", "version"},
	CategoryAnalytics:  {"property_id", "measurement_id"},
	CategoryTagManager: {"container_id"},
	CategoryMessaging:  {"phone_number", "business_account_id"},
}

// ParseCategory convertit une chaîne libre en catégorie reconnue.
// Les plateformes inconnues dégradent vers la catégorie générique.
func ParseCategory(raw string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := categoryExtraKeys[c]; ok {
		return c
	}
	return CategoryOther
}

// Valid indique si la catégorie fait partie des valeurs reconnues
func (c Category) Valid() bool {
	if c == CategoryOther {
		return true
	}
	_, ok := categoryExtraKeys[c]
	return ok
}

// KnownExtraKeys retourne les clés supplémentaires attendues pour la catégorie
func (c Category) KnownExtraKeys() []string {
	keys := categoryExtraKeys[c]
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

// NormalizeExtra normalise les clés du champ libre (minuscules, sans espaces
// superflus) sans jamais en perdre: une clé hors schéma reste présente.
func NormalizeExtra(extra map[string]string) map[string]string {
	if len(extra) == 0 {
		return nil
	}
	out := make(map[string]string, len(extra))
	for k, v := range extra {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "" {
			continue
		}
		out[key] = v
	}
	return out
}
