package entity

// Entry is one catalog record. Both fields are optional.
type Entry struct {
	Key   string `json:"-" yaml:"-"` // Catalog key, used as the output file stem
	Name  string `json:"name" yaml:"name"`
	Image string `json:"image" yaml:"image"`
}

// DisplayName returns the record name or the key when the name is absent.
func (e *Entry) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}

	return e.Key
}

// Catalog keeps entries in file order. It is read once and never mutated.
type Catalog struct {
	Entries []*Entry
}

func (c *Catalog) Len() int {
	return len(c.Entries)
}
