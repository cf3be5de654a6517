package admin

import (
	"errors"
	"strconv"
	"strings"
	"unicode"

	"github.com/jorgepalis/pymedesk/internal/domain"
)

var (
	ErrFieldsRequired = errors.New("admin: name, description and price are required")
	ErrInvalidStock   = errors.New("admin: stock must be a whole number of zero or more")
)

// ProductForm is the raw input of the product editor.
type ProductForm struct {
	Name        string
	Description string
	Price       string
	Stock       string
}

// EmptyForm is the form shown when creating a product.
func EmptyForm() ProductForm {
	return ProductForm{Stock: "0"}
}

// FormFor fills the editor with p.
func FormFor(p domain.Product) ProductForm {
	return ProductForm{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       strconv.Itoa(max(0, p.Stock)),
	}
}

// Validate trims the fields and turns them into a request body. Anything
// but digits is dropped from the stock, as the editor does on input.
func (f ProductForm) Validate() (domain.ProductPayload, error) {
	name := strings.TrimSpace(f.Name)
	description := strings.TrimSpace(f.Description)
	price := strings.TrimSpace(f.Price)
	if name == "" || description == "" || price == "" {
		return domain.ProductPayload{}, ErrFieldsRequired
	}

	digits := strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return -1
		}
		return r
	}, f.Stock)
	stock, err := strconv.Atoi(digits)
	if err != nil || stock < 0 {
		return domain.ProductPayload{}, ErrInvalidStock
	}

	return domain.ProductPayload{
		Name:        name,
		Description: description,
		Price:       price,
		Stock:       stock,
	}, nil
}
