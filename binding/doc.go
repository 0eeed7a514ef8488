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

// Package binding maps URL path parameters and query values onto tagged Go
// structs, and back.
//
// Fields opt in with `path:"name"` or `query:"name"` tags. A tag may list
// aliases (`query:"page,p"`) and the `omitempty` / `optional` modifiers,
// which only affect [Encode]. Untagged embedded structs are flattened, so a
// nested resource type inherits the fields of the type it embeds. Tagged
// struct fields bind from dotted keys (?author.name=ann).
//
// Supported field types are strings, integers, floats, booleans (true/false,
// yes/no, on/off, 1/0), time.Time, time.Duration, url.URL, net.IP, any
// encoding.TextUnmarshaler such as uuid.UUID, pointers to those, and slices
// of them. `default:"..."` supplies a value when the key is absent.
//
// # Decoding
//
//	type ListComments struct {
//	    ArticleID int      `path:"article"`
//	    Page      int      `query:"page" default:"1"`
//	    Tags      []string `query:"tag"`
//	}
//
//	req, err := binding.Bind[ListComments](
//	    binding.FromPath(map[string]string{"article": "7"}),
//	    binding.FromQuery(r.URL.Query()),
//	)
//
// # Encoding
//
//	values, err := binding.Encode(req, binding.TagQuery)
//
// Struct layouts are parsed once per type and tag and cached with a
// read-copy-update map, so concurrent binding is lock free after warm-up.
package binding
