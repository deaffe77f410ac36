package disclosure

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sozercan/disclosure-ui/apimodels"
)

// decodeCatalog reads a GET /questions body:
//
//	{"categories": {"<name>": [{"question": "..."}], ...}, ...}
//
// The categories object is walked token by token so that the resulting
// slice follows document order. Other top-level fields are skipped.
func decodeCatalog(r io.Reader) ([]apimodels.Category, error) {
	dec := json.NewDecoder(r)
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var (
		categories []apimodels.Category
		found      bool
	)
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		if key != "categories" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, fmt.Errorf("field %q: %w", key, err)
			}
			continue
		}
		if found {
			return nil, fmt.Errorf("duplicate categories field")
		}
		found = true
		categories, err = decodeCategoryMap(dec)
		if err != nil {
			return nil, err
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("missing categories field")
	}
	return categories, nil
}

func decodeCategoryMap(dec *json.Decoder) ([]apimodels.Category, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}

	categories := []apimodels.Category{}
	seen := make(map[string]bool)
	for dec.More() {
		name, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate category %q", name)
		}
		seen[name] = true

		var questions []apimodels.Question
		if err := dec.Decode(&questions); err != nil {
			return nil, fmt.Errorf("category %q: %w", name, err)
		}
		categories = append(categories, apimodels.NewCategory(name, questions))
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}
	return categories, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return key, nil
}
