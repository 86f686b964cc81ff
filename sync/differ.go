// ABOUTME: Field-level diffing between the stored and freshly fetched contact
// ABOUTME: Produces the change map recorded in the audit history
package sync

import (
	"reflect"
	"sort"
	"time"

	"github.com/harperreed/leadsync/models"
)

// lastContactedField is the diff key whose change triggers a conversation
// refetch: it is the upstream's proxy for "new interaction happened".
const lastContactedField = "last_contacted_at"

// DiffContact compares a fixed field set plus custom and array fields and
// returns the changes, old value first. Empty result means nothing moved.
func DiffContact(existing, incoming *models.Contact) []models.FieldChange {
	var changes []models.FieldChange

	stringFields := []struct {
		name     string
		old, new string
	}{
		{"name", existing.Name, incoming.Name},
		{"job_title", existing.JobTitle, incoming.JobTitle},
		{"company", existing.Company, incoming.Company},
		{"owner_name", existing.OwnerName, incoming.OwnerName},
		{"status_name", existing.StatusName, incoming.StatusName},
		{"territory_name", existing.TerritoryName, incoming.TerritoryName},
		{"market_name", existing.MarketName, incoming.MarketName},
	}
	for _, f := range stringFields {
		if f.old != f.new {
			changes = append(changes, models.FieldChange{Field: f.name, Old: f.old, New: f.new})
		}
	}

	if existing.LeadScore != incoming.LeadScore {
		changes = append(changes, models.FieldChange{Field: "lead_score", Old: existing.LeadScore, New: incoming.LeadScore})
	}

	if !timePtrEqual(existing.LastContactedAt, incoming.LastContactedAt) {
		changes = append(changes, models.FieldChange{
			Field: lastContactedField,
			Old:   existing.LastContactedAt,
			New:   incoming.LastContactedAt,
		})
	}

	arrayFields := []struct {
		name     string
		old, new []string
	}{
		{"emails", existing.Emails, incoming.Emails},
		{"phones", existing.Phones, incoming.Phones},
		{"tags", existing.Tags, incoming.Tags},
	}
	for _, f := range arrayFields {
		if !stringSliceEqual(f.old, f.new) {
			changes = append(changes, models.FieldChange{Field: f.name, Old: f.old, New: f.new})
		}
	}

	changes = append(changes, diffCustomFields(existing.CustomFields, incoming.CustomFields)...)

	return changes
}

// HasChange reports whether the change set touches a field.
func HasChange(changes []models.FieldChange, field string) bool {
	for _, ch := range changes {
		if ch.Field == field {
			return true
		}
	}
	return false
}

func diffCustomFields(old, new map[string]string) []models.FieldChange {
	if reflect.DeepEqual(old, new) {
		return nil
	}

	keys := make(map[string]bool)
	for k := range old {
		keys[k] = true
	}
	for k := range new {
		keys[k] = true
	}

	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	var changes []models.FieldChange
	for _, k := range sorted {
		if old[k] != new[k] {
			changes = append(changes, models.FieldChange{
				Field: "custom." + k,
				Old:   old[k],
				New:   new[k],
			})
		}
	}
	return changes
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
