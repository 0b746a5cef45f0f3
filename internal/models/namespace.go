package models

import "strings"

// Game namespaces
const (
	NamespaceRetail     = "retail"
	NamespaceClassic    = "classic"
	NamespaceClassicEra = "classic1x"
)

// CanonicalNamespace folds aliases onto the upstream spelling.
func CanonicalNamespace(ns string) string {
	switch strings.ToLower(strings.TrimSpace(ns)) {
	case "", NamespaceRetail:
		return NamespaceRetail
	case "classic_era", "classic-era", NamespaceClassicEra:
		return NamespaceClassicEra
	default:
		return strings.ToLower(strings.TrimSpace(ns))
	}
}

// NamespaceFor returns the profile namespace header value for a game
// namespace in a region, e.g. "profile-eu" or "profile-classic-us".
func NamespaceFor(ns, region string) string {
	return namespaced("profile", ns, region)
}

// StaticNamespaceFor returns the static-data namespace, e.g. "static-eu".
func StaticNamespaceFor(ns, region string) string {
	return namespaced("static", ns, region)
}

func namespaced(kind, ns, region string) string {
	region = strings.ToLower(region)
	ns = CanonicalNamespace(ns)
	if ns == NamespaceRetail {
		return kind + "-" + region
	}
	return kind + "-" + ns + "-" + region
}

// SupportsTalents reports whether the character's game exposes the talent
// loadout endpoint in the shape we normalize.
func SupportsTalents(c CharacterIdentity) bool {
	return CanonicalNamespace(c.Namespace) == NamespaceRetail
}

// RealmSlug returns the URL slug for a realm, preferring the upstream slug.
func RealmSlug(r Realm) string {
	if r.Slug != "" {
		return r.Slug
	}
	var b strings.Builder
	for _, ch := range strings.ToLower(strings.TrimSpace(r.Name)) {
		switch {
		case ch == ' ':
			b.WriteByte('-')
		case ch == '\'':
		default:
			b.WriteRune(ch)
		}
	}
	return b.String()
}
