package report

import (
	"encoding/json"
	"io"
)

// WriteJSON renders the report as indented JSON. Output is byte-stable
// for identical inputs apart from the generatedAt timestamp.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
