package models

// Category is a preset topic offered to browse without typing a query.
type Category struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Query string `json:"query"`
}

// Categories lists the browse presets in display order.
var Categories = []Category{
	{ID: "geopolitics", Label: "Geopolitics", Query: "geopolitics international relations"},
	{ID: "science", Label: "Science", Query: "science technology research"},
	{ID: "business", Label: "Business", Query: "business economy markets"},
	{ID: "culture", Label: "Culture", Query: "culture society arts"},
	{ID: "security", Label: "Security", Query: "cybersecurity privacy data"},
	{ID: "sports", Label: "Sports", Query: "sports athletics competition"},
}
