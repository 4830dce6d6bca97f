package providers

import (
	"fmt"
	"path/filepath"
	"strings"
	"tandem/internal/models"
	"tandem/internal/structures"

	"github.com/spf13/viper"
)

// Category is one entry of the content manifest. The manifest makes the size
// of every content pool an explicit, queryable fact instead of something
// inferred by probing lookup tables until a key is missing.
type Category struct {
	Slug         string   `mapstructure:"slug"`
	ContentType  string   `mapstructure:"contentType"`
	Prefix       string   `mapstructure:"prefix"`
	Count        int      `mapstructure:"count"`
	LegacyTitles []string `mapstructure:"legacyTitles"`
}

type TextProviderInterface interface {
	// Resolve returns the localized text for key, falling back to the
	// secondary locale and finally to the raw key itself.
	Resolve(locale, key string) string
	ItemCount(slug string) int
	ContentKey(slug string, day int) string
	CategoryForType(ct models.ContentType) (Category, bool)
	Categories() []Category
	// CategoryAliases maps every known legacy localized title to its slug.
	CategoryAliases() map[string]string
}

type TextProvider struct {
	categories     []Category
	bySlug         map[string]Category
	byType         map[string]Category
	aliases        map[string]string
	tables         map[string]map[string]string
	fallbackLocale string
}

func NewTextProvider(conf *structures.Config, logger Logger) (TextProviderInterface, error) {
	v := viper.New()
	filename := filepath.Base(conf.Content.ManifestPath)
	v.AddConfigPath(filepath.Dir(conf.Content.ManifestPath))
	v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read content manifest: %w", err)
	}

	var manifest struct {
		Categories []Category                   `mapstructure:"categories"`
		Tables     map[string]map[string]string `mapstructure:"tables"`
	}
	if err := v.Unmarshal(&manifest); err != nil {
		return nil, fmt.Errorf("unable to decode content manifest: %w", err)
	}
	if len(manifest.Categories) == 0 {
		return nil, fmt.Errorf("content manifest %s declares no categories", conf.Content.ManifestPath)
	}

	tp := &TextProvider{
		categories:     manifest.Categories,
		bySlug:         make(map[string]Category),
		byType:         make(map[string]Category),
		aliases:        make(map[string]string),
		tables:         manifest.Tables,
		fallbackLocale: conf.Content.FallbackLocale,
	}
	for _, cat := range manifest.Categories {
		tp.bySlug[cat.Slug] = cat
		tp.byType[cat.ContentType] = cat
		for _, title := range cat.LegacyTitles {
			tp.aliases[title] = cat.Slug
		}
	}

	logger.Infof(TypeApp, "Content manifest loaded: %d categories", len(manifest.Categories))
	return tp, nil
}

func (tp *TextProvider) Resolve(locale, key string) string {
	if table, ok := tp.tables[locale]; ok {
		if text, ok := table[key]; ok {
			return text
		}
	}
	if table, ok := tp.tables[tp.fallbackLocale]; ok {
		if text, ok := table[key]; ok {
			return text
		}
	}
	return key
}

func (tp *TextProvider) ItemCount(slug string) int {
	return tp.bySlug[slug].Count
}

func (tp *TextProvider) ContentKey(slug string, day int) string {
	cat, ok := tp.bySlug[slug]
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s_%d", cat.Prefix, day)
}

func (tp *TextProvider) CategoryForType(ct models.ContentType) (Category, bool) {
	cat, ok := tp.byType[string(ct)]
	return cat, ok
}

func (tp *TextProvider) Categories() []Category {
	return tp.categories
}

func (tp *TextProvider) CategoryAliases() map[string]string {
	out := make(map[string]string, len(tp.aliases))
	for title, slug := range tp.aliases {
		out[title] = slug
	}
	return out
}
