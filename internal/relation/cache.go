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

package relation

import "github.com/pkg/errors"

// UnknownRelation is returned when a row-change message references a
// relation-id the cache has never seen a Relation message for. This is a
// protocol violation per spec, but is recoverable: the caller drops the
// offending event and continues.
type UnknownRelation struct {
	RelationID uint32
}

func (e *UnknownRelation) Error() string {
	return "relation: unknown relation id referenced before its schema was announced"
}

// Cache stores the latest Relation per relation-id for one replication
// session. It is single-writer (the decoder goroutine calls Upsert) and
// lock-free on the read path, matching the decoder's single-threaded
// ownership; a new session always starts a new, empty Cache.
type Cache struct {
	byID map[uint32]*Relation
}

// NewCache returns an empty relation cache.
func NewCache() *Cache {
	return &Cache{byID: make(map[uint32]*Relation)}
}

// Upsert installs rel, replacing any previous schema recorded under the
// same relation-id.
func (c *Cache) Upsert(rel *Relation) {
	c.byID[rel.ID] = rel
}

// Get returns the cached schema for id, or UnknownRelation if none has
// been announced.
func (c *Cache) Get(id uint32) (*Relation, error) {
	rel, ok := c.byID[id]
	if !ok {
		return nil, &UnknownRelation{RelationID: id}
	}
	return rel, nil
}

// Len reports how many relations are currently cached.
func (c *Cache) Len() int { return len(c.byID) }
