package report

// Record is a raw source record in whatever shape the upstream fetcher
// produced. Normalization tolerates the field-name variants listed on
// the accessor helpers rather than demanding one schema.
type Record = map[string]any

// Company identifies the screened entity.
type Company struct {
	Name        string      `json:"name"`
	Country     string      `json:"country,omitempty"`
	Website     string      `json:"website,omitempty"`
	Identifiers Identifiers `json:"identifiers"`
}

// Identifiers carries registry numbers and similar external IDs keyed
// by scheme.
type Identifiers struct {
	Other map[string]string `json:"other"`
}

// Executive is one normalized leadership record.
type Executive struct {
	Name   string `json:"name"`
	Role   string `json:"role"`
	Source string `json:"source"`
}

// Ownership is one normalized shareholding record. Percent is nil when
// the upstream record carried no usable number.
type Ownership struct {
	Holder   string   `json:"holder"`
	Percent  *float64 `json:"percent"`
	Relation string   `json:"relation,omitempty"`
	Source   string   `json:"source"`
}

// NewsItem is one deduplicated, sanitized adverse-media item.
// Sentiment is always one of negative, neutral or positive; Severity is
// always within [1,5].
type NewsItem struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Source      string `json:"source,omitempty"`
	PublishedAt string `json:"publishedAt,omitempty"`
	Sentiment   string `json:"sentiment"`
	Severity    int    `json:"severity"`
	Snippet     string `json:"snippet,omitempty"`
}

// AdverseMedia bundles the model-written summary with the items it was
// derived from.
type AdverseMedia struct {
	Summary string     `json:"summary"`
	Items   []NewsItem `json:"items"`
}

// Meta records how and when the report was assembled.
type Meta struct {
	GeneratedAt  string          `json:"generatedAt"`
	Sources      []string        `json:"sources"`
	Warnings     []string        `json:"warnings"`
	CacheHit     bool            `json:"cacheHit"`
	FeatureFlags map[string]bool `json:"featureFlags"`
}

// Report is the canonical company screening result served to clients.
type Report struct {
	Company      Company      `json:"company"`
	Executives   []Executive  `json:"executives"`
	Ownership    []Ownership  `json:"ownership"`
	AdverseMedia AdverseMedia `json:"adverseMedia"`
	Meta         Meta         `json:"meta"`
}

// Sentiment values recognized on news items.
const (
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
	SentimentPositive = "positive"
)

// Severity bounds and fallback for news items.
const (
	SeverityMin     = 1
	SeverityMax     = 5
	SeverityDefault = 3
)
