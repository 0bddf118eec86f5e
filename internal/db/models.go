package db

// Stats is the row count of each table.
type Stats struct {
	Pages         int `json:"pages"`
	Links         int `json:"links"`
	ExternalLinks int `json:"external_links"`
	Categories    int `json:"categories"`
}

// Fixture is the YAML form of a wiki snapshot.
type Fixture struct {
	Sources []FixtureSource `yaml:"sources"`
}

// FixtureSource holds the pages of one source, keyed by source title.
type FixtureSource struct {
	Title string `yaml:"title"`
	// Namespaces lists the content namespaces. When empty the source
	// answers namespace discovery with an unknown action.
	Namespaces []int         `yaml:"namespaces"`
	Pages      []FixturePage `yaml:"pages"`
}

// FixturePage is one page and its outgoing references.
type FixturePage struct {
	Title      string   `yaml:"title"`
	NS         int      `yaml:"ns"`
	Categories []string `yaml:"categories"`
	Links      []string `yaml:"links"`
	External   []string `yaml:"external"`
}
