package pipeline

import (
	"regexp"
	"time"
)

// Defaults for intent parsing. Config overrides all of them.
const (
	// DefaultModelName is the default Gemini model used for intent extraction.
	DefaultModelName = "gemini-2.5-flash"

	// DefaultParseTimeout bounds a single intent parser call.
	DefaultParseTimeout = 30 * time.Second
)

// Audit statuses, mirroring the parsing run statuses of the audit tables.
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// wrapperKeys are object keys a model sometimes nests the record array under.
var wrapperKeys = []string{"records", "transactions", "expenses", "items", "edits", "updates"}

// editKeywords and editWords route a submission in auto mode to the update
// path. English words must stand alone so "exchange" stays an add.
var (
	editKeywords = []string{"修改", "更改", "改成", "改為", "改为", "更正"}
	editWords    = regexp.MustCompile(`(?i)\b(edit|change|changed|update|correct|fix)\b`)
)
