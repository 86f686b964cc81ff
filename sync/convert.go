// ABOUTME: Converts API contact records to local models
// ABOUTME: Resolves owner, status, and territory ids against page lookup arrays
package sync

import (
	"strconv"
	"strings"

	"github.com/harperreed/leadsync/freshsales"
	"github.com/harperreed/leadsync/models"
)

// marketNameField is the custom field carrying the market/report name used
// for validity filtering.
const marketNameField = "cf_market_name"

// PageLookups indexes the companion arrays of one contacts page.
type PageLookups struct {
	Users       map[int64]freshsales.APIUser
	Statuses    map[int64]string
	Territories map[int64]string
}

func NewPageLookups(resp *freshsales.ContactsResponse) *PageLookups {
	l := &PageLookups{
		Users:       make(map[int64]freshsales.APIUser, len(resp.Users)),
		Statuses:    make(map[int64]string, len(resp.ContactStatuses)),
		Territories: make(map[int64]string, len(resp.Territories)),
	}
	for _, u := range resp.Users {
		l.Users[u.ID] = u
	}
	for _, s := range resp.ContactStatuses {
		l.Statuses[s.ID] = s.Name
	}
	for _, t := range resp.Territories {
		l.Territories[t.ID] = t.Name
	}
	return l
}

// ConvertContact maps an API contact onto the local model, resolving display
// names at ingestion time.
func ConvertContact(api freshsales.APIContact, lookups *PageLookups) models.Contact {
	c := models.Contact{
		ID:              strconv.FormatInt(api.ID, 10),
		Name:            api.DisplayName,
		JobTitle:        api.JobTitle,
		Company:         api.CompanyName,
		CustomFields:    api.CustomField,
		Tags:            api.Tags,
		LeadScore:       api.LeadScore,
		LastContactedAt: api.LastContacted,
		RemoteCreatedAt: api.CreatedAt,
		RemoteUpdatedAt: api.UpdatedAt,
	}

	if api.Email != "" {
		c.Emails = append(c.Emails, api.Email)
	}
	c.Emails = append(c.Emails, api.OtherEmails...)

	if api.MobileNumber != "" {
		c.Phones = append(c.Phones, api.MobileNumber)
	}
	if api.WorkNumber != "" {
		c.Phones = append(c.Phones, api.WorkNumber)
	}

	if owner, ok := lookups.Users[api.OwnerID]; ok {
		c.OwnerName = owner.DisplayName
	}
	c.StatusName = lookups.Statuses[api.StatusID]
	c.TerritoryName = lookups.Territories[api.TerritoryID]
	c.MarketName = strings.TrimSpace(api.CustomField[marketNameField])

	return c
}
