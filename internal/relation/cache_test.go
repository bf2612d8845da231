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

package relation_test

import (
	"testing"

	"github.com/grove/pgoutput-decoder/internal/relation"
	"github.com/stretchr/testify/require"
)

func TestCacheUpsertAndGet(t *testing.T) {
	c := relation.NewCache()
	rel := &relation.Relation{ID: 1, Namespace: "public", Name: "customers", Identity: relation.IdentityFull}
	c.Upsert(rel)

	got, err := c.Get(1)
	require.NoError(t, err)
	require.Same(t, rel, got)
	require.Equal(t, "public.customers", got.QualifiedName())
}

func TestCacheUnknownRelation(t *testing.T) {
	c := relation.NewCache()
	_, err := c.Get(42)
	var ur *relation.UnknownRelation
	require.ErrorAs(t, err, &ur)
	require.EqualValues(t, 42, ur.RelationID)
}

func TestCacheReannounceReplacesInPlace(t *testing.T) {
	c := relation.NewCache()
	c.Upsert(&relation.Relation{ID: 1, Name: "old"})
	c.Upsert(&relation.Relation{ID: 1, Name: "new"})

	got, err := c.Get(1)
	require.NoError(t, err)
	require.Equal(t, "new", got.Name)
	require.Equal(t, 1, c.Len())
}

func TestKeyColumns(t *testing.T) {
	rel := &relation.Relation{Columns: []relation.Column{
		{Name: "id", PartOfKey: true},
		{Name: "name"},
		{Name: "tenant_id", PartOfKey: true},
	}}
	keys := rel.KeyColumns()
	require.Len(t, keys, 2)
	require.Equal(t, "id", keys[0].Name)
	require.Equal(t, "tenant_id", keys[1].Name)
}
