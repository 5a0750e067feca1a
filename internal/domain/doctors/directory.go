package doctors

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

//go:embed doctors.json
var seed []byte

// Directory is an immutable, in-memory list of doctors.
type Directory struct {
	doctors []Doctor
	byID    map[string]Doctor
}

// NewDirectory builds a directory from the given doctors.
func NewDirectory(list []Doctor) *Directory {
	return &Directory{
		doctors: list,
		byID:    lo.KeyBy(list, func(d Doctor) string { return d.ID }),
	}
}

// LoadDefault returns the directory shipped with the server.
func LoadDefault() (*Directory, error) {
	var list []Doctor
	if err := json.Unmarshal(seed, &list); err != nil {
		return nil, fmt.Errorf("decode doctor directory: %w", err)
	}
	return NewDirectory(list), nil
}

// List returns the doctors matching f in directory order.
func (d *Directory) List(f Filter) []Doctor {
	return lo.Filter(d.doctors, func(doc Doctor, _ int) bool {
		if f.Specialty != "" && !strings.EqualFold(doc.Specialty, f.Specialty) {
			return false
		}
		if f.AvailableOnly && !doc.IsAvailable {
			return false
		}
		if f.Language != "" && !lo.ContainsBy(doc.Languages, func(l string) bool {
			return strings.EqualFold(l, f.Language)
		}) {
			return false
		}
		return true
	})
}

// Get returns the doctor with id.
func (d *Directory) Get(id string) (Doctor, bool) {
	doc, ok := d.byID[id]
	return doc, ok
}

// Specialties returns the distinct specialties, sorted.
func (d *Directory) Specialties() []string {
	out := lo.Uniq(lo.Map(d.doctors, func(doc Doctor, _ int) string { return doc.Specialty }))
	sort.Strings(out)
	return out
}
