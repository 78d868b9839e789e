package catalog

// Service is a bookable offering published by a provider.
type Service struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	DurationMinutes int     `json:"duration_minutes"`
	Description     string  `json:"description"`
}

// Review is client feedback shown on a provider profile.
type Review struct {
	ID         string  `json:"id"`
	UserName   string  `json:"user_name"`
	UserAvatar string  `json:"user_avatar"`
	Rating     float64 `json:"rating"`
	Comment    string  `json:"comment"`
	Date       string  `json:"date"`
}

// PortfolioPost is a feed post published by a provider.
type PortfolioPost struct {
	ID            string `json:"id"`
	ProviderID    string `json:"provider_id"`
	ProviderName  string `json:"provider_name"`
	ImageURL      string `json:"image_url"`
	Caption       string `json:"caption"`
	Likes         int    `json:"likes"`
	CommentsCount int    `json:"comments_count"`
	Timestamp     string `json:"timestamp"`
}

// Provider is a business that accepts bookings. The dialogue engine reads it
// but never mutates it.
type Provider struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Slug           string          `json:"slug"`
	Category       string          `json:"category"`
	Bio            string          `json:"bio"`
	AvatarURL      string          `json:"avatar_url"`
	CoverImageURL  string          `json:"cover_image_url"`
	Services       []Service       `json:"services"`
	AvailableSlots []string        `json:"available_slots"`
	Portfolio      []PortfolioPost `json:"portfolio"`
	Reviews        []Review        `json:"reviews"`
}

// ServiceByName returns the service with the exact given name, if any.
func (p *Provider) ServiceByName(name string) (Service, bool) {
	for _, s := range p.Services {
		if s.Name == name {
			return s, true
		}
	}
	return Service{}, false
}
