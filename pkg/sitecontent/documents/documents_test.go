package documents

import (
	"context"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/site-content/pkg/sitecontent"
	"github.com/tendant/site-content/pkg/sitecontent/store/memory"
)

func TestRegistry(t *testing.T) {
	reg, err := Registry("")
	require.NoError(t, err)

	all := reg.All()
	require.Len(t, all, 5)

	for _, e := range Entries() {
		spec, ok := reg.Get(e.Key)
		require.True(t, ok, e.Key)
		assert.Equal(t, "siteContent:"+e.Key, spec.PrimaryKey())
		assert.Equal(t, []string{spec.PrimaryKey(), e.LegacyKey}, spec.Chain.StoreKeys())
		_, hasRemote := spec.Chain.Tier(sitecontent.SourceRemoteDefault)
		assert.False(t, hasRemote)
	}

	assert.Equal(t, []string{FooterSNSLinks}, reg.DocumentsForStoreKey("snsLinks"))
}

func TestRegistryWithRemote(t *testing.T) {
	reg, err := Registry("https://example.com/defaults/")
	require.NoError(t, err)

	spec, ok := reg.Get(FooterCompany)
	require.True(t, ok)
	tier, ok := spec.Chain.Tier(sitecontent.SourceRemoteDefault)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/defaults/footer.company.json", tier.URL)
}

func TestDefaultsAreFresh(t *testing.T) {
	a, err := Default(Home)
	require.NoError(t, err)
	a["hero"] = "mutated"

	b, err := Default(Home)
	require.NoError(t, err)
	assert.IsType(t, map[string]any{}, b["hero"])

	_, err = Default("nope")
	assert.ErrorIs(t, err, sitecontent.ErrUnknownDocument)
}

func TestFS(t *testing.T) {
	for _, e := range Entries() {
		_, err := fs.Stat(FS(), e.Key+".json")
		assert.NoError(t, err, e.Key)
	}
}

func TestLegacyMigrations(t *testing.T) {
	ctx := context.Background()
	reg, err := Registry("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		key    string
		legacy string
		raw    string
		want   map[string]any
	}{
		{
			name:   "flat hero fields",
			key:    Home,
			legacy: "homeContent",
			raw:    `{"heroTitle":"Hi","heroSubtitle":"there"}`,
			want:   map[string]any{"hero": map[string]any{"title": "Hi", "subtitle": "there"}},
		},
		{
			name:   "bare affiliate array",
			key:    Affiliates,
			legacy: "affiliatesData",
			raw:    `[{"name":"Acme"}]`,
			want:   map[string]any{"affiliates": []any{map[string]any{"name": "Acme"}}},
		},
		{
			name:   "flat sns map",
			key:    FooterSNSLinks,
			legacy: "snsLinks",
			raw:    `{"instagram":"https://x"}`,
			want:   map[string]any{"snsLinks": map[string]any{"instagram": "https://x"}},
		},
		{
			name:   "current shape under legacy key",
			key:    FooterSNSLinks,
			legacy: "snsLinks",
			raw:    `{"snsLinks":{"instagram":"https://x"}}`,
			want:   map[string]any{"snsLinks": map[string]any{"instagram": "https://x"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			require.NoError(t, store.Set(ctx, tt.legacy, tt.raw))

			r := sitecontent.NewResolver(reg, store, nil, nil)
			doc, err := r.Resolve(ctx, tt.key)
			require.NoError(t, err)
			assert.Equal(t, sitecontent.SourceLegacyStore, doc.SourceTier)
			assert.Equal(t, tt.want, doc.Payload)
		})
	}
}

func TestSNSLinks(t *testing.T) {
	doc := &sitecontent.Document{Key: FooterSNSLinks, Payload: map[string]any{
		"snsLinks": map[string]any{
			"kakao":     "https://kakao",
			"youtube":   "https://yt",
			"instagram": "",
			"tiktok":    "https://tt",
		},
	}}

	assert.Equal(t, []Link{
		{Network: "youtube", URL: "https://yt"},
		{Network: "kakao", URL: "https://kakao"},
	}, SNSLinks(doc))

	def, err := Default(FooterSNSLinks)
	require.NoError(t, err)
	assert.Empty(t, SNSLinks(&sitecontent.Document{Payload: def}))
	assert.Nil(t, SNSLinks(nil))
}
