package documents

import "github.com/tendant/site-content/pkg/sitecontent"

// Link is one social network link shown in the footer.
type Link struct {
	Network string `json:"network"`
	URL     string `json:"url"`
}

// snsOrder is the footer display order; unlisted networks are not shown.
var snsOrder = []string{"youtube", "naverBlog", "instagram", "facebook", "kakao"}

// SNSLinks returns the non-empty links of a footer.snsLinks document in
// display order.
func SNSLinks(doc *sitecontent.Document) []Link {
	if doc == nil {
		return nil
	}
	links, _ := doc.Payload["snsLinks"].(map[string]any)
	var out []Link
	for _, network := range snsOrder {
		if url, _ := links[network].(string); url != "" {
			out = append(out, Link{Network: network, URL: url})
		}
	}
	return out
}
