package documents

// legacy home pages stored the hero as flat top-level fields
var legacyHeroFields = map[string]string{
	"heroTitle":    "title",
	"heroSubtitle": "subtitle",
	"heroCtaLabel": "ctaLabel",
	"heroCtaHref":  "ctaHref",
	"heroImage":    "image",
}

func migrateHome(value any) any {
	payload, ok := value.(map[string]any)
	if !ok {
		return value
	}
	if _, ok := payload["hero"]; ok {
		return payload
	}
	hero := map[string]any{}
	out := map[string]any{}
	for k, v := range payload {
		if field, ok := legacyHeroFields[k]; ok {
			hero[field] = v
			continue
		}
		out[k] = v
	}
	if len(hero) == 0 {
		return payload
	}
	out["hero"] = hero
	return out
}

// the old admin page saved the affiliate list as a bare array
func migrateAffiliates(value any) any {
	if arr, ok := value.([]any); ok {
		return map[string]any{"affiliates": arr}
	}
	return value
}

// links used to be a flat {network: url} object
func migrateSNSLinks(value any) any {
	payload, ok := value.(map[string]any)
	if !ok {
		return value
	}
	if _, ok := payload["snsLinks"]; ok {
		return payload
	}
	links := map[string]any{}
	for k, v := range payload {
		if s, ok := v.(string); ok {
			links[k] = s
		}
	}
	if len(links) == 0 {
		return payload
	}
	return map[string]any{"snsLinks": links}
}
