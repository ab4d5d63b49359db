package book

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/cespare/xxhash/v2"
)

const (
	HashRolling = "rolling"
	HashXX      = "xxhash"

	hashWidth = 16
)

// Hasher считает отпечаток коллекции книг. Отпечаток - эвристика устаревания,
// а не проверка целостности: разные каталоги могут дать одинаковое значение.
type Hasher func(books []Book) (string, error)

// HasherByName returns the hasher registered under name. Empty name means rolling.
func HasherByName(name string) (Hasher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", HashRolling:
		return RollingHash, nil
	case HashXX:
		return XXHash, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownHasher, name)
	}
}

// Canonical serializes books sorted by id, entries with the same id by their encoding.
// Input order does not affect the result, duplicate ids included.
func Canonical(books []Book) ([]byte, error) {
	type entry struct {
		id   string
		data []byte
	}

	entries := make([]entry, len(books))
	for i, b := range books {
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("canonical encoding: %w", err)
		}
		entries[i] = entry{id: b.ID, data: data}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].id != entries[j].id {
			return entries[i].id < entries[j].id
		}
		return bytes.Compare(entries[i].data, entries[j].data) < 0
	})

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, e := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(e.data)
	}
	buf.WriteByte(']')

	return buf.Bytes(), nil
}

// RollingHash folds the canonical form into a signed 32-bit h = h*31 + c over UTF-16
// code units, then renders |h| as hex left-padded to 16 characters.
func RollingHash(books []Book) (string, error) {
	data, err := Canonical(books)
	if err != nil {
		return "", err
	}

	var h int32
	for _, unit := range utf16.Encode([]rune(string(data))) {
		h = h*31 + int32(unit)
	}

	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}

	return pad(strconv.FormatInt(abs, 16)), nil
}

// XXHash is the 64-bit alternative over the same canonical form.
func XXHash(books []Book) (string, error) {
	data, err := Canonical(books)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(data)), nil
}

func pad(s string) string {
	if len(s) >= hashWidth {
		return s[:hashWidth]
	}
	return strings.Repeat("0", hashWidth-len(s)) + s
}
