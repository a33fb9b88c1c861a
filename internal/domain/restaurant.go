package domain

// Dish is a single menu item.
type Dish struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       any    `json:"price"`
}

// Menu holds the dishes and dietary notes the assistant can talk about.
type Menu struct {
	SignatureDishes       []Dish            `json:"signature_dishes"`
	RecommendedDishes     []Dish            `json:"recommended_dishes"`
	DietaryAccommodations map[string]string `json:"dietary_accommodations"`
}

// Hours holds the opening schedule keyed by lowercase weekday name.
type Hours struct {
	RegularHours map[string]string `json:"regular_hours"`
	SpecialNotes []string          `json:"special_notes"`
}

// RestaurantInfo holds identity, location, booking and feature details.
type RestaurantInfo struct {
	BasicInfo struct {
		Name        string `json:"name"`
		Tagline     string `json:"tagline"`
		Description string `json:"description"`
	} `json:"basic_info"`
	Location struct {
		Address    string `json:"address"`
		Phone      string `json:"phone"`
		Email      string `json:"email"`
		Directions string `json:"directions"`
	} `json:"location"`
	Booking struct {
		Methods  []string `json:"methods"`
		Policies []string `json:"policies"`
	} `json:"booking"`
	Features []string `json:"features"`
}
