package resolver

import (
	"fmt"
	"strings"
)

// Table is a hand-written description of one table exposed to the oracle.
type Table struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}

// Database describes one database variant. AllowedRoles is informational;
// the policy engine stays the authority.
type Database struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	AllowedRoles []string `json:"allowed_roles"`
	Tables       []Table  `json:"tables"`
}

// Resources returns the table names in catalog order.
func (d Database) Resources() []string {
	out := make([]string, len(d.Tables))
	for i, t := range d.Tables {
		out[i] = t.Name
	}
	return out
}

var productionTables = []Table{
	{Name: "patients", Columns: []string{"id", "name", "email", "phone", "therapist_id", "diagnosis", "status", "created_at"}},
	{Name: "notes", Columns: []string{"id", "patient_id", "therapist_id", "session_date", "content", "created_at"}},
	{Name: "therapists", Columns: []string{"id", "name", "specialization", "region", "active"}},
}

var productionRoles = []string{"admin", "therapist", "support", "superuser"}

var catalog = map[string]Database{
	"us_db": {
		ID:           "us_db",
		Name:         "US Database",
		Description:  "Production database for US region",
		AllowedRoles: productionRoles,
		Tables:       productionTables,
	},
	"eu_db": {
		ID:           "eu_db",
		Name:         "EU Database",
		Description:  "Production database for EU region",
		AllowedRoles: productionRoles,
		Tables:       productionTables,
	},
	"sandbox_db": {
		ID:           "sandbox_db",
		Name:         "Sandbox Database",
		Description:  "Development/testing database with anonymized data",
		AllowedRoles: []string{"admin", "analyst", "superuser"},
		Tables: []Table{
			{Name: "patients", Columns: []string{"id", "age_group", "gender", "region", "diagnosis_category", "treatment_duration_days", "outcome_score", "created_at"}},
			{Name: "notes", Columns: []string{"id", "patient_id", "session_number", "note_category", "sentiment_score", "word_count", "created_at"}},
			{Name: "research_metrics", Columns: []string{"id", "metric_name", "metric_value", "patient_count", "date_calculated"}},
		},
	},
}

// Lookup returns the catalog entry for a database identifier.
func Lookup(databaseID string) (Database, bool) {
	db, ok := catalog[databaseID]
	return db, ok
}

// DescribeSchema renders the schema description used in translation prompts.
// Unknown identifiers get the production layout.
func DescribeSchema(databaseID string) string {
	db, ok := catalog[databaseID]
	if !ok {
		db = Database{ID: databaseID, Tables: productionTables}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Database %s (PostgreSQL).\n", db.ID)
	for _, t := range db.Tables {
		fmt.Fprintf(&b, "Table %s(%s)\n", t.Name, strings.Join(t.Columns, ", "))
	}
	return b.String()
}
