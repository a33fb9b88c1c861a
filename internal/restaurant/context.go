// Package restaurant loads the restaurant's menu, hours and details from JSON
// files and renders them into the assistant's system prompt.
package restaurant

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ashureev/caficafe-chat/internal/domain"
)

// Data file names inside the data directory.
const (
	MenuFile  = "menu.json"
	HoursFile = "hours.json"
	InfoFile  = "restaurant_info.json"
)

// DefaultName is used when restaurant_info.json has no name.
const DefaultName = "CAFICAFE"

var weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// Context is the loaded restaurant data.
type Context struct {
	Menu  domain.Menu
	Hours domain.Hours
	Info  domain.RestaurantInfo
}

// Load reads the data files from dir. A missing or invalid file is logged and
// treated as empty so the assistant can still answer general questions.
func Load(dir string, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Context{}
	loadJSON(dir, MenuFile, &c.Menu, logger)
	loadJSON(dir, HoursFile, &c.Hours, logger)
	loadJSON(dir, InfoFile, &c.Info, logger)
	return c
}

func loadJSON(dir, name string, dst any, logger *slog.Logger) {
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("Restaurant data file not found", "file", name, "dir", dir)
		} else {
			logger.Error("Failed to read restaurant data file", "file", name, "error", err)
		}
		return
	}
	if err := json.Unmarshal(data, dst); err != nil {
		logger.Error("Invalid JSON in restaurant data file", "file", name, "error", err)
	}
}

// Name returns the restaurant name.
func (c *Context) Name() string {
	if c.Info.BasicInfo.Name != "" {
		return c.Info.BasicInfo.Name
	}
	return DefaultName
}

// Phone returns the contact phone number, if known.
func (c *Context) Phone() string {
	return c.Info.Location.Phone
}

// Prompt renders the system instruction given to the model.
func (c *Context) Prompt() string {
	info := c.Info
	var b strings.Builder

	fmt.Fprintf(&b, "You are a helpful customer service chatbot for %s restaurant.\n\n", strings.ToUpper(c.Name()))

	b.WriteString("RESTAURANT INFORMATION:\n")
	fmt.Fprintf(&b, "- Name: %s\n", c.Name())
	fmt.Fprintf(&b, "- Tagline: %s\n", info.BasicInfo.Tagline)
	fmt.Fprintf(&b, "- Description: %s\n\n", info.BasicInfo.Description)

	b.WriteString("LOCATION & CONTACT:\n")
	fmt.Fprintf(&b, "- Address: %s\n", info.Location.Address)
	fmt.Fprintf(&b, "- Phone: %s\n", info.Location.Phone)
	fmt.Fprintf(&b, "- Email: %s\n", info.Location.Email)
	fmt.Fprintf(&b, "- Directions: %s\n\n", info.Location.Directions)

	section(&b, "OPENING HOURS", c.hoursLines())
	section(&b, "SIGNATURE DISHES", dishLines(c.Menu.SignatureDishes))
	section(&b, "RECOMMENDED DISHES", dishLines(c.Menu.RecommendedDishes))
	section(&b, "DIETARY ACCOMMODATIONS", c.dietaryLines())
	section(&b, "BOOKING INFORMATION", c.bookingLines())
	section(&b, "FEATURES", bullets(info.Features))

	b.WriteString("INSTRUCTIONS:\n")
	b.WriteString("- Always be friendly, helpful, and professional\n")
	b.WriteString("- Provide accurate information based on the context above\n")
	b.WriteString("- If asked about something not covered, politely say you don't have that information and suggest contacting the restaurant directly\n")
	fmt.Fprintf(&b, "- For reservations, direct customers to call %s or use the online system\n", info.Location.Phone)
	b.WriteString("- Mention student discounts when relevant\n")
	b.WriteString("- Be welcoming to tourists and explain dishes clearly\n")
	b.WriteString("- If someone asks about allergens or dietary restrictions, always recommend speaking with staff directly for safety\n")

	return b.String()
}

func section(b *strings.Builder, title string, lines []string) {
	b.WriteString(title)
	b.WriteString(":\n")
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
}

func bullets(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, "- "+item)
	}
	return out
}

// hoursLines lists weekdays in calendar order, then any other keys sorted.
func (c *Context) hoursLines() []string {
	hours := c.Hours.RegularHours
	var lines []string
	seen := make(map[string]bool, len(hours))
	for _, day := range weekdays {
		if t, ok := hours[day]; ok {
			lines = append(lines, fmt.Sprintf("- %s: %s", capitalize(day), t))
			seen[day] = true
		}
	}
	var rest []string
	for day := range hours {
		if !seen[day] {
			rest = append(rest, day)
		}
	}
	sort.Strings(rest)
	for _, day := range rest {
		lines = append(lines, fmt.Sprintf("- %s: %s", capitalize(day), hours[day]))
	}

	if len(c.Hours.SpecialNotes) > 0 {
		lines = append(lines, "", "Special Notes:")
		lines = append(lines, bullets(c.Hours.SpecialNotes)...)
	}
	return lines
}

func dishLines(dishes []domain.Dish) []string {
	out := make([]string, 0, len(dishes))
	for _, d := range dishes {
		out = append(out, fmt.Sprintf("- %s: %s - %s", d.Name, d.Description, formatPrice(d.Price)))
	}
	return out
}

// formatPrice accepts the string ("$12") and numeric (12.5) forms used in menu files.
func formatPrice(p any) string {
	switch v := p.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprint(v)
	}
}

func (c *Context) dietaryLines() []string {
	keys := make([]string, 0, len(c.Menu.DietaryAccommodations))
	for k := range c.Menu.DietaryAccommodations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("- %s: %s", titleCase(strings.ReplaceAll(k, "_", " ")), c.Menu.DietaryAccommodations[k]))
	}
	return out
}

func (c *Context) bookingLines() []string {
	lines := []string{"Booking Methods:"}
	lines = append(lines, bullets(c.Info.Booking.Methods)...)
	if len(c.Info.Booking.Policies) > 0 {
		lines = append(lines, "", "Policies:")
		lines = append(lines, bullets(c.Info.Booking.Policies)...)
	}
	return lines
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}
