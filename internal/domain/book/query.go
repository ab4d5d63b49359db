package book

import "strings"

// FindByID returns the first book with the given id.
func FindByID(books []Book, id string) (Book, bool) {
	for _, b := range books {
		if b.ID == id {
			return b, true
		}
	}
	return Book{}, false
}

// ByCategory returns books whose category equals categoryID, in input order.
func ByCategory(books []Book, categoryID string) []Book {
	return where(books, func(b Book) bool { return b.Category == categoryID })
}

// ByAgeRange returns books whose age range equals ageRangeID.
func ByAgeRange(books []Book, ageRangeID string) []Book {
	return where(books, func(b Book) bool { return b.AgeRange == ageRangeID })
}

// Search does a case-insensitive substring match on title, author and description.
func Search(books []Book, query string) []Book {
	q := strings.ToLower(query)
	return where(books, func(b Book) bool { return matches(b, q) })
}

// Available returns books that can be rented.
func Available(books []Book) []Book {
	return where(books, func(b Book) bool { return b.Available })
}

// Filtered применяет все заданные условия одновременно (AND) и обрезает результат до Limit.
func Filtered(books []Book, f Filter) []Book {
	q := strings.ToLower(f.Search)

	out := where(books, func(b Book) bool {
		if f.CategoryID != "" && b.Category != f.CategoryID {
			return false
		}
		if f.AgeCategoryID != "" && b.AgeRange != f.AgeCategoryID {
			return false
		}
		if f.AvailableOnly && !b.Available {
			return false
		}
		if f.Search != "" && !matches(b, q) {
			return false
		}
		return true
	})

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}

	return out
}

// matches expects an already lower-cased query.
func matches(b Book, q string) bool {
	if strings.Contains(strings.ToLower(b.Title), q) {
		return true
	}
	if strings.Contains(strings.ToLower(b.Author), q) {
		return true
	}
	return b.Description != "" && strings.Contains(strings.ToLower(b.Description), q)
}

func where(books []Book, keep func(Book) bool) []Book {
	out := make([]Book, 0)
	for _, b := range books {
		if keep(b) {
			out = append(out, b)
		}
	}
	return out
}
