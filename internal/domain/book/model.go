package book

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"sort"
)

// Book - запись каталога. Поля, которые кеш не интерпретирует (обложка, цены,
// количество экземпляров), хранятся в Attributes без изменений.
type Book struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	AgeRange    string `json:"age_range,omitempty"`
	Available   bool   `json:"available"`

	Attributes map[string]json.RawMessage `json:"-"`
}

var knownFields = map[string]struct{}{
	"id":          {},
	"title":       {},
	"author":      {},
	"description": {},
	"category":    {},
	"age_range":   {},
	"available":   {},
}

// bookFields is Book without custom marshalling.
type bookFields struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	AgeRange    string `json:"age_range,omitempty"`
	Available   bool   `json:"available"`
}

// MarshalJSON пишет известные поля в фиксированном порядке, затем атрибуты,
// отсортированные по ключу. Этот вывод используется как каноническая форма для хеша.
func (b Book) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(bookFields{
		ID:          b.ID,
		Title:       b.Title,
		Author:      b.Author,
		Description: b.Description,
		Category:    b.Category,
		AgeRange:    b.AgeRange,
		Available:   b.Available,
	})
	if err != nil {
		return nil, err
	}
	if len(b.Attributes) == 0 {
		return known, nil
	}

	keys := make([]string, 0, len(b.Attributes))
	for k := range b.Attributes {
		if _, ok := knownFields[k]; ok {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(known[:len(known)-1])
	for _, k := range keys {
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		value := b.Attributes[k]
		if len(value) == 0 {
			value = json.RawMessage("null")
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, value); err != nil {
			return nil, fmt.Errorf("attribute %s: %w", k, err)
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(compact.Bytes())
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON раскладывает известные поля по структуре, остальные сохраняет в Attributes.
func (b *Book) UnmarshalJSON(data []byte) error {
	var fields bookFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var attrs map[string]json.RawMessage
	for k, v := range raw {
		if _, ok := knownFields[k]; ok {
			continue
		}
		if attrs == nil {
			attrs = make(map[string]json.RawMessage)
		}
		attrs[k] = v
	}

	*b = Book{
		ID:          fields.ID,
		Title:       fields.Title,
		Author:      fields.Author,
		Description: fields.Description,
		Category:    fields.Category,
		AgeRange:    fields.AgeRange,
		Available:   fields.Available,
		Attributes:  attrs,
	}

	return nil
}

// Clone returns a copy that shares no mutable state with b.
func (b Book) Clone() Book {
	if b.Attributes != nil {
		attrs := make(map[string]json.RawMessage, len(b.Attributes))
		for k, v := range b.Attributes {
			attrs[k] = append(json.RawMessage(nil), v...)
		}
		b.Attributes = attrs
	}
	return b
}

// Attribute decodes the pass-through attribute key into v.
func (b Book) Attribute(key string, v any) (bool, error) {
	raw, ok := b.Attributes[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("decode attribute %s: %w", key, err)
	}
	return true, nil
}

// Patch - частичное обновление книги. Nil-поля не трогают текущее значение.
type Patch struct {
	Title       *string `json:"title,omitempty"`
	Author      *string `json:"author,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	AgeRange    *string `json:"age_range,omitempty"`
	Available   *bool   `json:"available,omitempty"`

	// Attributes overrides individual pass-through attributes; other attributes survive.
	Attributes map[string]json.RawMessage `json:"attributes,omitempty"`
}

// Apply merges p onto b field by field. The id is never changed.
func Apply(b Book, p Patch) Book {
	out := b.Clone()

	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Author != nil {
		out.Author = *p.Author
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Category != nil {
		out.Category = *p.Category
	}
	if p.AgeRange != nil {
		out.AgeRange = *p.AgeRange
	}
	if p.Available != nil {
		out.Available = *p.Available
	}
	if len(p.Attributes) > 0 {
		if out.Attributes == nil {
			out.Attributes = make(map[string]json.RawMessage, len(p.Attributes))
		}
		maps.Copy(out.Attributes, p.Attributes)
	}

	return out
}

// Filter - условия выборки. Пустое поле означает отсутствие ограничения.
type Filter struct {
	CategoryID    string `json:"category_id,omitempty"`
	AgeCategoryID string `json:"age_category_id,omitempty"`
	Search        string `json:"search,omitempty"`
	AvailableOnly bool   `json:"available_only,omitempty"`
	Limit         int    `json:"limit,omitempty"`
}
