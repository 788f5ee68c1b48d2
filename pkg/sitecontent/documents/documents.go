// Package documents is the table of page documents a site ships with: their
// compiled-in defaults, schemas, store keys and legacy migrations.
package documents

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"

	"github.com/tendant/site-content/pkg/sitecontent"
)

//go:embed defaults/*.json
var defaultFiles embed.FS

// Document keys.
const (
	Home           = "home"
	About          = "about"
	Affiliates     = "affiliates"
	FooterCompany  = "footer.company"
	FooterSNSLinks = "footer.snsLinks"
)

// PrimaryPrefix namespaces the current store keys.
const PrimaryPrefix = "siteContent:"

// Entry is one row of the documents table.
type Entry struct {
	Key       string
	Title     string
	LegacyKey string
	Schema    *sitecontent.Schema
	Migrate   sitecontent.MigrateFunc
}

// PrimaryKey is the store key the document is saved under.
func (e Entry) PrimaryKey() string {
	return PrimaryPrefix + e.Key
}

var table = []Entry{
	{
		Key:       Home,
		Title:     "Home page",
		LegacyKey: "homeContent",
		Migrate:   migrateHome,
		Schema: &sitecontent.Schema{Fields: []sitecontent.Field{
			{Name: "hero", Kind: sitecontent.KindObject, Required: true, Fields: []sitecontent.Field{
				{Name: "title", Kind: sitecontent.KindString, Required: true},
				{Name: "subtitle", Kind: sitecontent.KindString},
				{Name: "ctaLabel", Kind: sitecontent.KindString},
				{Name: "ctaHref", Kind: sitecontent.KindString},
				{Name: "image", Kind: sitecontent.KindString},
			}},
			{Name: "highlights", Kind: sitecontent.KindArray, Elem: sitecontent.KindObject, Fields: []sitecontent.Field{
				{Name: "title", Kind: sitecontent.KindString, Required: true},
				{Name: "body", Kind: sitecontent.KindString},
			}},
		}},
	},
	{
		Key:       About,
		Title:     "About page",
		LegacyKey: "aboutContent",
		Schema: &sitecontent.Schema{Fields: []sitecontent.Field{
			{Name: "headline", Kind: sitecontent.KindString, Required: true},
			{Name: "body", Kind: sitecontent.KindString, Required: true},
			{Name: "image", Kind: sitecontent.KindString},
			{Name: "values", Kind: sitecontent.KindArray, Elem: sitecontent.KindObject, Fields: []sitecontent.Field{
				{Name: "title", Kind: sitecontent.KindString, Required: true},
				{Name: "description", Kind: sitecontent.KindString},
			}},
		}},
	},
	{
		Key:       Affiliates,
		Title:     "Affiliates",
		LegacyKey: "affiliatesData",
		Migrate:   migrateAffiliates,
		Schema: &sitecontent.Schema{Fields: []sitecontent.Field{
			{Name: "affiliates", Kind: sitecontent.KindArray, Required: true, Elem: sitecontent.KindObject, Fields: []sitecontent.Field{
				{Name: "name", Kind: sitecontent.KindString, Required: true},
				{Name: "logo", Kind: sitecontent.KindString},
				{Name: "href", Kind: sitecontent.KindString},
			}},
		}},
	},
	{
		Key:       FooterCompany,
		Title:     "Footer company info",
		LegacyKey: "footerInfo",
		Schema: &sitecontent.Schema{Fields: []sitecontent.Field{
			{Name: "name", Kind: sitecontent.KindString, Required: true},
			{Name: "ceo", Kind: sitecontent.KindString},
			{Name: "businessNumber", Kind: sitecontent.KindString},
			{Name: "address", Kind: sitecontent.KindString},
			{Name: "phone", Kind: sitecontent.KindString},
			{Name: "email", Kind: sitecontent.KindString},
			{Name: "copyright", Kind: sitecontent.KindString},
		}},
	},
	{
		Key:       FooterSNSLinks,
		Title:     "Footer social links",
		LegacyKey: "snsLinks",
		Migrate:   migrateSNSLinks,
		Schema: &sitecontent.Schema{Fields: []sitecontent.Field{
			{Name: "snsLinks", Kind: sitecontent.KindStringMap, Required: true},
		}},
	},
}

// Entries returns the documents table.
func Entries() []Entry {
	return append([]Entry(nil), table...)
}

// FS exposes the default JSON files, named {key}.json, for static serving.
func FS() fs.FS {
	sub, err := fs.Sub(defaultFiles, "defaults")
	if err != nil {
		panic(err)
	}
	return sub
}

// Default returns a fresh copy of the compiled-in payload for key.
func Default(key string) (map[string]any, error) {
	data, err := defaultFiles.ReadFile("defaults/" + key + ".json")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", sitecontent.ErrUnknownDocument, key)
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("default %s: %w", key, err)
	}
	return payload, nil
}

// RemoteURL is where a site publishes the static default for key.
func RemoteURL(baseURL, key string) string {
	if baseURL == "" {
		return ""
	}
	return strings.TrimRight(baseURL, "/") + "/" + key + ".json"
}

// Specs builds the document specs. The remote tier is included only when
// remoteBaseURL is set.
func Specs(remoteBaseURL string) ([]sitecontent.DocumentSpec, error) {
	specs := make([]sitecontent.DocumentSpec, 0, len(table))
	for _, e := range table {
		def, err := Default(e.Key)
		if err != nil {
			return nil, err
		}
		specs = append(specs, sitecontent.DocumentSpec{
			Key:    e.Key,
			Title:  e.Title,
			Schema: e.Schema,
			Chain:  sitecontent.StandardChain(e.PrimaryKey(), e.LegacyKey, RemoteURL(remoteBaseURL, e.Key), e.Migrate, def),
		})
	}
	return specs, nil
}

// Registry builds a registry holding every document in the table.
func Registry(remoteBaseURL string) (*sitecontent.Registry, error) {
	specs, err := Specs(remoteBaseURL)
	if err != nil {
		return nil, err
	}
	return sitecontent.NewRegistry(specs...)
}
