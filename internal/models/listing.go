package models

import (
	"fmt"
	"time"
)

// Category is one of the fixed listing categories.
type Category string

const (
	CategoryCars        Category = "Cars"
	CategoryProperties  Category = "Properties"
	CategoryMobiles     Category = "Mobiles"
	CategoryBikes       Category = "Bikes"
	CategoryElectronics Category = "Electronics & Appliances"
	CategoryFurniture   Category = "Furniture"
	CategoryPassion     Category = "Passion"
	CategoryServices    Category = "Services"
	CategoryOther       Category = "Other"
)

// DefaultCategory is preselected on a fresh sell form.
const DefaultCategory = CategoryCars

// Categories lists every category in display order.
var Categories = []Category{
	CategoryCars,
	CategoryProperties,
	CategoryMobiles,
	CategoryBikes,
	CategoryElectronics,
	CategoryFurniture,
	CategoryPassion,
	CategoryServices,
	CategoryOther,
}

// ParseCategory returns the Category matching s exactly.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Listing represents a classified ad as stored in the listings collection.
// ImageURL is empty when no image was supplied; callers treat that as "no image".
type Listing struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	Title       string    `bson:"title" json:"title"`
	Category    Category  `bson:"category" json:"category"`
	Price       float64   `bson:"price" json:"price"`
	Description string    `bson:"description" json:"description"`
	ImageURL    string    `bson:"image_url" json:"imageUrl"`
	SellerID    string    `bson:"seller_id,omitempty" json:"sellerId,omitempty"`
	CreatedAt   time.Time `bson:"created_at" json:"createdAt"`
}

// HasImage reports whether the listing carries a resolved image URL.
func (l *Listing) HasImage() bool {
	return l.ImageURL != ""
}
