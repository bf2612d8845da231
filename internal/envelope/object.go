// Copyright 2023 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package envelope

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Field is one key/value pair of an Object, in declaration order.
type Field struct {
	Name  string
	Value any
}

// Object is a JSON object that preserves insertion order on encoding,
// used for before/after row images so column order (matching the
// relation's declared order) survives into the serialised envelope
// rather than being alphabetised the way encoding/json would render a
// plain Go map.
type Object struct {
	Fields []Field
}

// Get returns the value for name and whether it was present.
func (o *Object) Get(name string) (any, bool) {
	if o == nil {
		return nil, false
	}
	for _, f := range o.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Has reports whether name is present, distinguishing an explicit null
// (present, value nil) from an absent (unchanged-TOAST) column.
func (o *Object) Has(name string) bool {
	_, ok := o.Get(name)
	return ok
}

var _ json.Marshaler = (*Object)(nil)

// MarshalJSON renders the object's fields in declaration order. A nil
// receiver marshals to the JSON literal null. decimal.Decimal values are
// written as unquoted numbers carrying their scale (5000.00 stays 5000.00).
func (o *Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, errors.Wrap(err, "envelope: marshal field name")
		}
		buf.Write(key)
		buf.WriteByte(':')
		if d, ok := f.Value.(decimal.Decimal); ok {
			// A bare JSON number written with the decimal's own scale, so
			// trailing fractional zeros survive serialisation.
			places := int32(0)
			if d.Exponent() < 0 {
				places = -d.Exponent()
			}
			buf.WriteString(d.StringFixed(places))
			continue
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, errors.Wrap(err, "envelope: marshal field value")
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

var _ json.Unmarshaler = (*Object)(nil)

// UnmarshalJSON decodes a JSON object, preserving the order keys
// appeared in the input.
func (o *Object) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return errors.Wrap(err, "envelope: decode object")
	}
	if _, ok := tok.(json.Delim); !ok {
		// literal null
		o.Fields = nil
		return nil
	}

	o.Fields = nil
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return errors.Wrap(err, "envelope: decode object key")
		}
		key, ok := keyTok.(string)
		if !ok {
			return errors.New("envelope: object key is not a string")
		}
		var val any
		if err := dec.Decode(&val); err != nil {
			return errors.Wrap(err, "envelope: decode object value")
		}
		o.Fields = append(o.Fields, Field{Name: key, Value: val})
	}
	return nil
}
