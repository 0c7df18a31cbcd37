package domain

import "strings"

// Category identifies the drawing an observation was made on.
type Category string

// Drawing categories accepted at the service boundary.
const (
	CategoryHome    Category = "HOME"
	CategoryTree    Category = "TREE"
	CategoryPerson1 Category = "PERSON1"
	CategoryPerson2 Category = "PERSON2"
)

var personCategories = map[Category]struct{}{
	CategoryPerson1: {},
	CategoryPerson2: {},
}

// ParseCategory normalises s and reports whether it is a known category.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	return c, c.IsValid()
}

// IsValid returns true if the category is recognised.
func (c Category) IsValid() bool {
	switch c {
	case CategoryHome, CategoryTree, CategoryPerson1, CategoryPerson2:
		return true
	default:
		return false
	}
}

// IsPerson reports whether the category is one of the person drawings.
func (c Category) IsPerson() bool {
	_, ok := personCategories[c]
	return ok
}

// Subject returns the drawing subject label: house, tree or person.
func (c Category) Subject() string {
	switch {
	case c == CategoryHome:
		return "house"
	case c == CategoryTree:
		return "tree"
	case c.IsPerson():
		return "person"
	default:
		return "unknown"
	}
}

// String returns the string representation.
func (c Category) String() string {
	return string(c)
}

// AllCategories returns every accepted category.
func AllCategories() []Category {
	return []Category{CategoryHome, CategoryTree, CategoryPerson1, CategoryPerson2}
}
