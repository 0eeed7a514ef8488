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

package binding

import (
	"encoding"
	"fmt"
	"maps"
	"net"
	"net/url"
	"reflect"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// RCU: readers load an immutable map, writers copy and swap under the lock.
	structInfoCachePtr atomic.Pointer[map[cacheKey]*structInfo]
	structInfoCacheMu  sync.Mutex
)

func init() {
	m := make(map[cacheKey]*structInfo)
	structInfoCachePtr.Store(&m)
}

var (
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
	timeType            = reflect.TypeFor[time.Time]()
	durationType        = reflect.TypeFor[time.Duration]()
	urlType             = reflect.TypeFor[url.URL]()
	ipType              = reflect.TypeFor[net.IP]()
)

type cacheKey struct {
	typ reflect.Type
	tag string
}

// fieldInfo stores cached information about a struct field.
type fieldInfo struct {
	index        []int        // Field index path, through embedded structs
	name         string       // Struct field name
	tagName      string       // Primary tag value, e.g. "user_id" from `query:"user_id"`
	aliases      []string     // Additional lookup names, e.g. ["uid"] from `query:"user_id,uid"`
	omitEmpty    bool         // `,omitempty` or `,optional`: Encode skips zero values
	fieldType    reflect.Type // Declared type, before pointer unwrapping
	isPtr        bool
	isSlice      bool
	isStruct     bool // Nested (non-embedded) struct bound with "name." prefixes
	defaultValue string
	typedDefault reflect.Value // Valid when defaultValue converts cleanly
}

type structInfo struct {
	fields []fieldInfo
}

// getStructInfo retrieves or parses struct information for typ and tag.
// Concurrent callers parse a given type+tag at most once.
func getStructInfo(typ reflect.Type, tag string) *structInfo {
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		panic(fmt.Sprintf("binding: getStructInfo expects struct, got %s", typ.Kind()))
	}

	key := cacheKey{typ: typ, tag: tag}

	m := structInfoCachePtr.Load()
	if si, ok := (*m)[key]; ok {
		return si
	}

	structInfoCacheMu.Lock()
	defer structInfoCacheMu.Unlock()

	m = structInfoCachePtr.Load()
	if si, ok := (*m)[key]; ok {
		return si
	}

	si := parseStructType(typ, tag, nil)

	newMap := make(map[cacheKey]*structInfo, len(*m)+1)
	maps.Copy(newMap, *m)
	newMap[key] = si
	structInfoCachePtr.Store(&newMap)

	return si
}

// WarmupCache pre-parses the query and path layout of the given struct values.
// Non-struct values are skipped.
func WarmupCache(values ...any) {
	for _, v := range values {
		typ := reflect.TypeOf(v)
		if typ == nil {
			continue
		}
		if typ.Kind() == reflect.Pointer {
			typ = typ.Elem()
		}
		if typ.Kind() != reflect.Struct {
			continue
		}
		getStructInfo(typ, TagQuery)
		getStructInfo(typ, TagPath)
	}
}
