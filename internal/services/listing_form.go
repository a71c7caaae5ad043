package services

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"adboard/market/internal/models"
)

// ImageFile is an image chosen in the sell form.
type ImageFile struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// ListingForm holds the fields of the sell view exactly as entered.
type ListingForm struct {
	Title       string     `json:"title"`
	Category    string     `json:"category"`
	Price       string     `json:"price"`
	Description string     `json:"description"`
	Image       *ImageFile `json:"-"`
}

// NewListingForm returns the initial form.
func NewListingForm() ListingForm {
	return ListingForm{Category: string(models.DefaultCategory)}
}

// Reset restores the initial values.
func (f *ListingForm) Reset() {
	*f = NewListingForm()
}

// Validate checks the form at the input boundary and returns an error message
// per invalid field. An empty map means the form may be submitted.
func (f ListingForm) Validate() map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(f.Title) == "" {
		errs["title"] = "Title is required"
	}
	if strings.TrimSpace(f.Category) == "" {
		errs["category"] = "Category is required"
	} else if _, err := models.ParseCategory(f.Category); err != nil {
		errs["category"] = err.Error()
	}
	if strings.TrimSpace(f.Price) == "" {
		errs["price"] = "Price is required"
	} else if _, err := f.ParsePrice(); err != nil {
		errs["price"] = "Price must be a non-negative number"
	}
	if strings.TrimSpace(f.Description) == "" {
		errs["description"] = "Description is required"
	}
	if f.Image == nil {
		errs["image"] = "Image is required"
	}
	return errs
}

// ParsePrice converts the price field to a number.
func (f ListingForm) ParsePrice() (float64, error) {
	price, err := strconv.ParseFloat(strings.TrimSpace(f.Price), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, f.Price)
	}
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, f.Price)
	}
	if price < 0 {
		return 0, fmt.Errorf("%w: %q is negative", ErrInvalidPrice, f.Price)
	}
	return price, nil
}
