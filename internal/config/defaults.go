package config

// DefaultStopwords are the tokens excluded from indexing when the config does
// not provide its own list.
var DefaultStopwords = []string{"the", "is", "a", "an", "of", "for", "and", "to", "in"}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Index.Dir == "" {
		cfg.Index.Dir = "/usr/local/var/kensaku/data/segments"
	}
	if cfg.Index.DatabasePath == "" {
		cfg.Index.DatabasePath = "/usr/local/var/kensaku/data/db/documents.db"
	}
	if cfg.Index.BatchSize == 0 {
		cfg.Index.BatchSize = 256
	}
	if cfg.Analysis.Stopwords == nil {
		cfg.Analysis.Stopwords = append([]string(nil), DefaultStopwords...)
	}
	if cfg.Analysis.MinTokenLength == 0 {
		cfg.Analysis.MinTokenLength = 1
	}
	if cfg.Search.Scorer == "" {
		cfg.Search.Scorer = "tfidf"
	}
	if cfg.Search.SnippetWindow == 0 {
		cfg.Search.SnippetWindow = 30
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Corpus.Extensions == nil {
		cfg.Corpus.Extensions = []string{".txt", ".md", ".html", ".pdf", ".docx", ".xlsx", ".odt", ".rtf"}
	}
	if cfg.Watch.RebuildDelayMS == 0 {
		cfg.Watch.RebuildDelayMS = 2000
	}
}
