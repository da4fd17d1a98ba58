// Package client is the registry of client records. Records live as
// string rows in the remote sheet with a local CSV mirror; all fields,
// amounts and dates included, stay strings at rest.
package client

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Client is one registry record.
type Client struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Branch          string `json:"branch"`
	Advisor         string `json:"advisor"`
	IntakeDate      string `json:"intake_date"`
	DisbursedDate   string `json:"disbursed_date"`
	Status          string `json:"status"`
	ProposedAmount  string `json:"proposed_amount"`
	FinalAmount     string `json:"final_amount"`
	SecondaryStatus string `json:"secondary_status"`
	Notes           string `json:"notes"`
	Score           string `json:"score"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	Analyst         string `json:"analyst"`
	Source          string `json:"source"`
}

// Columns is the canonical column order of the sheet and the CSV file.
var Columns = []string{
	"id", "name", "branch", "advisor", "intake_date", "disbursed_date",
	"status", "proposed_amount", "final_amount", "secondary_status",
	"notes", "score", "phone", "email", "analyst", "source",
}

// Row renders the record in canonical column order.
func (c Client) Row() []string {
	return []string{
		c.ID, c.Name, c.Branch, c.Advisor, c.IntakeDate, c.DisbursedDate,
		c.Status, c.ProposedAmount, c.FinalAmount, c.SecondaryStatus,
		c.Notes, c.Score, c.Phone, c.Email, c.Analyst, c.Source,
	}
}

// FromRow maps a row to a record by header name. Missing columns stay
// empty, unknown columns are ignored.
func FromRow(header, row []string) Client {
	get := func(col string) string {
		for i, h := range header {
			if h == col && i < len(row) {
				return strings.TrimSpace(row[i])
			}
		}
		return ""
	}
	return Client{
		ID:              get("id"),
		Name:            get("name"),
		Branch:          get("branch"),
		Advisor:         get("advisor"),
		IntakeDate:      get("intake_date"),
		DisbursedDate:   get("disbursed_date"),
		Status:          get("status"),
		ProposedAmount:  get("proposed_amount"),
		FinalAmount:     get("final_amount"),
		SecondaryStatus: get("secondary_status"),
		Notes:           get("notes"),
		Score:           get("score"),
		Phone:           get("phone"),
		Email:           get("email"),
		Analyst:         get("analyst"),
		Source:          get("source"),
	}
}

var idRe = regexp.MustCompile(`^C(\d+)$`)

// NextID picks the next free identifier, max numeric suffix plus one.
// Ids not matching C<number> are ignored; an empty table starts at
// C1000.
func NextID(clients []Client) string {
	max := 0
	found := false
	for _, c := range clients {
		m := idRe.FindStringSubmatch(strings.TrimSpace(c.ID))
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if !found || n > max {
			max = n
			found = true
		}
	}
	if !found {
		return "C1000"
	}
	return fmt.Sprintf("C%d", max+1)
}

// RepairIDs fills empty identifiers and regenerates duplicated ones,
// incrementing past collisions. Row order is untouched and a second
// run changes nothing.
func RepairIDs(clients []Client) ([]Client, bool) {
	used := make(map[string]struct{}, len(clients))
	changed := false
	for i := range clients {
		cur := strings.TrimSpace(clients[i].ID)
		_, dup := used[cur]
		if cur != "" && !dup {
			used[cur] = struct{}{}
			if cur != clients[i].ID {
				clients[i].ID = cur
				changed = true
			}
			continue
		}
		id := NextID(clients)
		for {
			if _, taken := used[id]; !taken && !idInTable(clients, id) {
				break
			}
			num, _ := strconv.Atoi(strings.TrimPrefix(id, "C"))
			id = fmt.Sprintf("C%d", num+1)
		}
		clients[i].ID = id
		used[id] = struct{}{}
		changed = true
	}
	return clients, changed
}

func idInTable(clients []Client, id string) bool {
	for _, c := range clients {
		if strings.TrimSpace(c.ID) == id {
			return true
		}
	}
	return false
}

var dateLayouts = []string{
	"01/02/2006", "02/01/2006", "2006-01-02", time.RFC3339, "2006-01-02 15:04:05",
}

// ParseDateFlexible tries the US layout first, then the European one,
// then common ISO forms.
func ParseDateFlexible(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SortByDates orders records by intake date then disbursed date,
// ascending, records without a parseable date last.
func SortByDates(clients []Client) {
	key := func(c Client) (time.Time, time.Time, bool) {
		in, inOK := ParseDateFlexible(c.IntakeDate)
		dis, _ := ParseDateFlexible(c.DisbursedDate)
		return in, dis, inOK
	}
	sort.SliceStable(clients, func(i, j int) bool {
		ai, ad, aok := key(clients[i])
		bi, bd, bok := key(clients[j])
		if aok != bok {
			return aok
		}
		if !ai.Equal(bi) {
			return ai.Before(bi)
		}
		return ad.Before(bd)
	})
}
