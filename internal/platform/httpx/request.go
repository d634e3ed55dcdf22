package httpx

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NewValidator returns a validator reporting fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// IDList is a list of ids that also accepts a single bare id in JSON.
type IDList []int64

// UnmarshalJSON accepts `[1,2]` and `1`.
func (l *IDList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '[' {
		var id int64
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*l = IDList{id}
		return nil
	}
	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	if ids == nil {
		ids = []int64{}
	}
	*l = ids
	return nil
}
