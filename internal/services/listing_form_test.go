package services

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(name string) *ImageFile {
	return &ImageFile{
		Filename:    name,
		ContentType: "image/jpeg",
		Size:        4,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("jpeg")), nil
		},
	}
}

func validForm() ListingForm {
	return ListingForm{
		Title:       "Bike",
		Category:    "Bikes",
		Price:       "500",
		Description: "Red road bike",
		Image:       testImage("photo.jpg"),
	}
}

func TestListingForm_Initial(t *testing.T) {
	f := NewListingForm()
	assert.Equal(t, ListingForm{Category: "Cars"}, f)
}

func TestListingForm_Reset(t *testing.T) {
	f := validForm()
	f.Reset()
	assert.Equal(t, NewListingForm(), f)
}

func TestListingForm_Validate(t *testing.T) {
	assert.Empty(t, validForm().Validate())

	errs := ListingForm{}.Validate()
	for _, field := range []string{"title", "category", "price", "description", "image"} {
		assert.Contains(t, errs, field)
	}

	f := validForm()
	f.Category = "Boats"
	f.Price = "-1"
	errs = f.Validate()
	assert.Len(t, errs, 2)
	assert.Contains(t, errs, "category")
	assert.Contains(t, errs, "price")

	f = validForm()
	f.Price = "abc"
	assert.Contains(t, f.Validate(), "price")
}

func TestListingForm_ParsePrice(t *testing.T) {
	f := validForm()
	f.Price = " 12.5 "
	price, err := f.ParsePrice()
	require.NoError(t, err)
	assert.Equal(t, 12.5, price)

	for _, bad := range []string{"", "abc", "-3", "NaN", "Inf"} {
		f.Price = bad
		_, err := f.ParsePrice()
		assert.ErrorIs(t, err, ErrInvalidPrice, bad)
	}
}
