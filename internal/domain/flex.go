package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexString accepts a JSON string, number, bool or null and keeps its text form.
// Shopify sends ids, phones and zips with whatever type the storefront stored.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}

	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}

	if data[0] == '{' || data[0] == '[' {
		*s = ""
		return nil
	}

	// numbers and booleans keep their literal text so large ids are not rounded
	*s = FlexString(data)
	return nil
}

func (s FlexString) String() string {
	return strings.TrimSpace(string(s))
}

// FlexInt accepts a JSON number or numeric string. Anything else decodes to zero.
type FlexInt int

func (n *FlexInt) UnmarshalJSON(data []byte) error {
	var s FlexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}

	text := s.String()
	if text == "" {
		*n = 0
		return nil
	}

	if v, err := strconv.Atoi(text); err == nil {
		*n = FlexInt(v)
		return nil
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = FlexInt(int(f))
	return nil
}
