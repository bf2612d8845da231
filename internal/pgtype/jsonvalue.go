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

package pgtype

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// decodeJSON recursively decodes a json/jsonb column's text payload into
// the {null,bool,number,string,array,object} Document shape. jsonb's
// binary wire form (a version byte followed by the same text it would
// otherwise send) is unwrapped by the caller before this is invoked.
func decodeJSON(raw []byte) (Document, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "pgtype: invalid json document")
	}
	return doc, nil
}
