// Package document stores client files, either on the local disk or in
// an S3-compatible bucket. Files are grouped in one folder per client,
// preferably named after the client; folders created under an older
// id-based layout are migrated to the name-based one.
package document

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Document describes one stored client file.
type Document struct {
	Name     string    `json:"name"`
	Category string    `json:"category"`
	Size     int64     `json:"size"`
	ModTime  time.Time `json:"mod_time"`
	Link     string    `json:"link,omitempty"`
}

// Ref identifies the client a document belongs to. The storage key is
// the sanitized client name when one exists, otherwise the id.
type Ref struct {
	ID   string
	Name string
}

func (r Ref) Key() string {
	if name := SafeFileName(r.Name); name != "" {
		return name
	}
	return SafeFileName(r.ID)
}

// LegacyKey is the id-based folder name used before folders were named
// after the client. Empty when it matches Key.
func (r Ref) LegacyKey() string {
	id := SafeFileName(r.ID)
	if id == r.Key() {
		return ""
	}
	return id
}

// Category groups uploads under a filename prefix and restricts the
// accepted extensions.
type Category struct {
	Name       string
	Prefix     string
	Extensions []string
}

var Categories = []Category{
	{Name: "estado_cuenta", Prefix: "estado_cuenta_", Extensions: []string{".pdf", ".jpg", ".jpeg", ".png"}},
	{Name: "buro_credito", Prefix: "buro_credito_", Extensions: []string{".pdf", ".jpg", ".jpeg", ".png"}},
	{Name: "solicitud", Prefix: "solicitud_", Extensions: []string{".pdf", ".docx", ".jpg", ".jpeg", ".png"}},
	{Name: "contrato", Prefix: "contrato_", Extensions: []string{".pdf", ".docx", ".jpg", ".jpeg", ".png"}},
	{Name: "otros", Prefix: "otros_", Extensions: []string{".pdf", ".docx", ".xlsx", ".jpg", ".jpeg", ".png"}},
}

func CategoryByName(name string) (Category, bool) {
	for _, c := range Categories {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

// Allows reports whether the filename's extension is accepted.
func (c Category) Allows(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range c.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Apply prepends the category prefix unless the name already carries it.
func (c Category) Apply(filename string) string {
	if strings.HasPrefix(filename, c.Prefix) {
		return SafeFileName(filename)
	}
	return SafeFileName(c.Prefix + filename)
}

// CategoryOf returns the category name a stored file belongs to, by its
// prefix, or "otros" when none matches.
func CategoryOf(filename string) string {
	for _, c := range Categories {
		if strings.HasPrefix(filename, c.Prefix) {
			return c.Name
		}
	}
	return "otros"
}

var (
	unsafeRe = regexp.MustCompile(`[^A-Za-z0-9._\- áéíóúÁÉÍÓÚñÑ]+`)
	spacesRe = regexp.MustCompile(`\s+`)
)

// SafeFileName strips characters that are unsafe in folder and file
// names, collapses whitespace and caps the length at 150 runes.
func SafeFileName(s string) string {
	s = strings.TrimSpace(s)
	s = unsafeRe.ReplaceAllString(s, "_")
	s = spacesRe.ReplaceAllString(s, " ")
	if r := []rune(s); len(r) > 150 {
		s = string(r[:150])
	}
	return s
}
