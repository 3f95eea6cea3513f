package resolver

import (
	"fmt"
	"strings"
)

// PatternFallback translates a question without the oracle. Counting
// questions become a COUNT(*) over the resource; everything else a bounded
// SELECT *. The result depends only on its inputs.
func PatternFallback(question, resource string) string {
	q := strings.ToLower(question)
	if strings.Contains(q, "count") || strings.Contains(q, "how many") {
		return fmt.Sprintf("SELECT COUNT(*) FROM %s", resource)
	}
	return fmt.Sprintf("SELECT * FROM %s LIMIT 10", resource)
}
