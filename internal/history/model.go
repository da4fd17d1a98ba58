// Package history keeps the append-only ledger of client-record actions.
// Entries are never mutated; the only non-append mutations are the full
// wipe and the optional purge of a deleted client's rows.
package history

import "time"

// Action kinds recorded in the ledger.
const (
	ActionCreated            = "CLIENT ADDED"
	ActionUpdated            = "CLIENT UPDATED"
	ActionStatusChanged      = "STATUS CHANGED"
	ActionDeleted            = "CLIENT DELETED"
	ActionImported           = "CLIENT IMPORTED"
	ActionDocumentUploaded   = "DOCUMENT UPLOADED"
	ActionDocumentDownloaded = "DOCUMENT DOWNLOADED"
)

// Entry is one ledger record.
type Entry struct {
	ID           string `json:"id"`
	ClientID     string `json:"client_id"`
	Name         string `json:"name"`
	StatusOld    string `json:"status_old"`
	StatusNew    string `json:"status_new"`
	SecondaryOld string `json:"secondary_old"`
	SecondaryNew string `json:"secondary_new"`
	Detail       string `json:"detail"`
	Action       string `json:"action"`
	Actor        string `json:"actor"`
	TS           string `json:"ts"`
}

// csvColumns is the local ledger file layout.
var csvColumns = []string{
	"entry_id", "client_id", "name", "status_old", "status_new",
	"secondary_old", "secondary_new", "detail", "action", "actor", "ts",
}

// sheetColumns is the remote ledger layout; the remote sheet keeps the
// condensed form.
var sheetColumns = []string{"ts", "action", "client_id", "name", "detail", "actor"}

const sheetClientIDCol = 2

func (e Entry) csvRow() []string {
	return []string{
		e.ID, e.ClientID, e.Name, e.StatusOld, e.StatusNew,
		e.SecondaryOld, e.SecondaryNew, e.Detail, e.Action, e.Actor, e.TS,
	}
}

func entryFromCSV(header, row []string) Entry {
	get := func(col string) string {
		for i, h := range header {
			if h == col && i < len(row) {
				return row[i]
			}
		}
		return ""
	}
	return Entry{
		ID:           get("entry_id"),
		ClientID:     get("client_id"),
		Name:         get("name"),
		StatusOld:    get("status_old"),
		StatusNew:    get("status_new"),
		SecondaryOld: get("secondary_old"),
		SecondaryNew: get("secondary_new"),
		Detail:       get("detail"),
		Action:       get("action"),
		Actor:        get("actor"),
		TS:           get("ts"),
	}
}

func (e Entry) sheetRow() []string {
	return []string{e.TS, e.Action, e.ClientID, e.Name, e.Detail, e.Actor}
}

// entryFromSheet maps a condensed remote row back to the internal
// shape. The sheet does not carry the entry id or the status columns.
func entryFromSheet(row []string) Entry {
	get := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}
	return Entry{
		TS:       get(0),
		Action:   get(1),
		ClientID: get(2),
		Name:     get(3),
		Detail:   get(4),
		Actor:    get(5),
	}
}

// parseTS accepts the formats the ledger has carried over time.
func parseTS(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
