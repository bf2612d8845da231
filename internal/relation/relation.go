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

// Package relation holds the per-session cache of table schemas
// announced by the server's Relation protocol messages.
package relation

// Identity is the replica-identity setting that controls how much of the
// old row a server includes with Update/Delete messages.
type Identity byte

// The four replica-identity kinds the protocol distinguishes.
const (
	IdentityDefault Identity = 'd'
	IdentityNothing Identity = 'n'
	IdentityFull    Identity = 'f'
	IdentityIndex   Identity = 'i'
)

func (id Identity) String() string {
	switch id {
	case IdentityDefault:
		return "default"
	case IdentityNothing:
		return "nothing"
	case IdentityFull:
		return "full"
	case IdentityIndex:
		return "index"
	default:
		return "unknown"
	}
}

// Column describes one column of a cached Relation.
type Column struct {
	Name     string
	OID      uint32
	Modifier int32
	// PartOfKey reports whether this column participates in the
	// replica-identity key (the flags byte pgoutput attaches per column).
	PartOfKey bool
}

// Relation is the cached schema for one relation-id, as announced by the
// most recent Relation message the server sent for it.
type Relation struct {
	ID        uint32
	Namespace string
	Name      string
	Identity  Identity
	Columns   []Column
}

// QualifiedName returns "namespace.name".
func (r *Relation) QualifiedName() string {
	return r.Namespace + "." + r.Name
}

// KeyColumns returns the columns participating in the replica-identity
// key, in declared order.
func (r *Relation) KeyColumns() []Column {
	var out []Column
	for _, c := range r.Columns {
		if c.PartOfKey {
			out = append(out, c)
		}
	}
	return out
}
