package doctors

// Doctor is an entry of the static directory patients book against.
type Doctor struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Specialty   string   `json:"specialty"`
	Image       string   `json:"image"`
	IsAvailable bool     `json:"isAvailable"`
	Rating      float64  `json:"rating"`
	Reviews     int      `json:"reviews"`
	Education   string   `json:"education"`
	Experience  string   `json:"experience"`
	Languages   []string `json:"languages"`
}

// Filter narrows a directory listing. Zero values match everything.
type Filter struct {
	Specialty     string
	AvailableOnly bool
	Language      string
}
