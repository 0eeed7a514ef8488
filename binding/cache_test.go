// Copyright 2025 The Rivaas Authors
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

//go:build !integration

package binding

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetStructInfo_ConcurrentCallersShareResult(t *testing.T) {
	t.Parallel()

	type cached struct {
		A string `query:"a"`
		B int    `query:"b"`
	}

	const n = 32
	results := make([]*structInfo, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Go(func() {
			results[i] = getStructInfo(reflectType[cached](), TagQuery)
		})
	}
	wg.Wait()

	for _, r := range results {
		assert.Same(t, results[0], r)
	}
	assert.Len(t, results[0].fields, 2)
}

func TestParseTag(t *testing.T) {
	t.Parallel()

	name, aliases, omit := parseTag("user_id,uid,optional", "UserID")
	assert.Equal(t, "user_id", name)
	assert.Equal(t, []string{"uid"}, aliases)
	assert.True(t, omit)

	name, aliases, omit = parseTag("", "UserID")
	assert.Equal(t, "UserID", name)
	assert.Nil(t, aliases)
	assert.False(t, omit)
}

func TestWarmupCache(t *testing.T) {
	t.Parallel()

	WarmupCache(listParams{}, &commentsParams{}, 42, nil)

	m := structInfoCachePtr.Load()
	_, ok := (*m)[cacheKey{typ: reflectType[commentsParams](), tag: TagPath}]
	assert.True(t, ok)
}
