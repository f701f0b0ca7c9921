package config

import "strings"

// DatabaseConfig holds export settings for a single Notion database.
// Databases differ in schema, so property names are configurable per id.
type DatabaseConfig struct {
	// TitleProperty overrides the title property name.
	TitleProperty string `yaml:"titleProperty,omitempty"`

	// TagsProperty overrides the multi-select tags property name.
	TagsProperty string `yaml:"tagsProperty,omitempty"`

	// TextKinds are extra block types exported as text (e.g. heading_1, callout).
	TextKinds []string `yaml:"textKinds,omitempty"`

	// MaxDepth overrides the nesting limit. If zero, the global value is used.
	MaxDepth int `yaml:"maxDepth,omitempty"`

	// UniqueNames overrides hash-suffixed asset filenames.
	// A pointer so that an explicit false can override a true default.
	UniqueNames *bool `yaml:"uniqueNames,omitempty"`
}

// File represents the structure of the .notionsync configuration file.
type File struct {
	// Databases maps database ids to their settings.
	Databases map[string]DatabaseConfig `yaml:"databases,omitempty"`

	// Defaults applies to every database unless overridden.
	Defaults DatabaseConfig `yaml:"defaults,omitempty"`
}

// GetDatabaseConfig returns the configuration for a database id,
// merging the database-specific entry over the defaults.
func (cf *File) GetDatabaseConfig(databaseID string) DatabaseConfig {
	result := cf.Defaults

	db, ok := cf.lookup(databaseID)
	if !ok {
		return result
	}

	if db.TitleProperty != "" {
		result.TitleProperty = db.TitleProperty
	}
	if db.TagsProperty != "" {
		result.TagsProperty = db.TagsProperty
	}
	if len(db.TextKinds) > 0 {
		result.TextKinds = db.TextKinds
	}
	if db.MaxDepth != 0 {
		result.MaxDepth = db.MaxDepth
	}
	if db.UniqueNames != nil {
		result.UniqueNames = db.UniqueNames
	}
	return result
}

// lookup finds the entry for id. Notion ids are accepted with or without dashes.
func (cf *File) lookup(id string) (DatabaseConfig, bool) {
	if db, ok := cf.Databases[id]; ok {
		return db, true
	}
	want := compactID(id)
	for key, db := range cf.Databases {
		if compactID(key) == want {
			return db, true
		}
	}
	return DatabaseConfig{}, false
}

func compactID(id string) string {
	return strings.ToLower(strings.ReplaceAll(id, "-", ""))
}
