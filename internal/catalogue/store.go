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

package catalogue

import (
	"errors"
	"net/http"
	"slices"
	"sync"
	"time"

	riverrors "rivaas.dev/restkit/errors"
)

var (
	// ErrArticleNotFound is returned for an unknown article ID.
	ErrArticleNotFound = riverrors.WithStatus(errors.New("article not found"), http.StatusNotFound)

	// ErrCommentNotFound is returned for an unknown comment ID.
	ErrCommentNotFound = riverrors.WithStatus(errors.New("comment not found"), http.StatusNotFound)
)

// Article is a stored article.
type Article struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Comment is a stored comment on an article.
type Comment struct {
	ID        int       `json:"id"`
	ArticleID int       `json:"article_id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Store keeps articles and their comments in memory.
type Store struct {
	mu       sync.RWMutex
	articles map[int]*Article
	comments map[int][]Comment
	nextID   int
	now      func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		articles: make(map[int]*Article),
		comments: make(map[int][]Comment),
		now:      time.Now,
	}
}

// List returns up to limit articles in ID order, filtered by tag when tag
// is not empty.
func (s *Store) List(tag string, limit int) []Article {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int, 0, len(s.articles))
	for id := range s.articles {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]Article, 0, min(limit, len(ids)))
	for _, id := range ids {
		if len(out) == limit {
			break
		}
		a := s.articles[id]
		if tag != "" && !slices.Contains(a.Tags, tag) {
			continue
		}
		out = append(out, *a)
	}

	return out
}

// Create stores a new article and returns it with its ID.
func (s *Store) Create(a Article) Article {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	a.ID = s.nextID
	a.CreatedAt = s.now().UTC()
	s.articles[a.ID] = &a

	return a
}

// Get returns the article with id.
func (s *Store) Get(id int) (Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.articles[id]
	if !ok {
		return Article{}, ErrArticleNotFound
	}

	return *a, nil
}

// Delete removes the article with id and its comments.
func (s *Store) Delete(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.articles[id]; !ok {
		return ErrArticleNotFound
	}
	delete(s.articles, id)
	delete(s.comments, id)

	return nil
}

// Comments returns up to limit comments of an article, oldest first.
func (s *Store) Comments(articleID, limit int) ([]Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.articles[articleID]; !ok {
		return nil, ErrArticleNotFound
	}
	cs := s.comments[articleID]

	return slices.Clone(cs[:min(limit, len(cs))]), nil
}

// AddComment appends a comment to an article.
func (s *Store) AddComment(articleID int, c Comment) (Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.articles[articleID]; !ok {
		return Comment{}, ErrArticleNotFound
	}
	c.ID = len(s.comments[articleID]) + 1
	c.ArticleID = articleID
	c.CreatedAt = s.now().UTC()
	s.comments[articleID] = append(s.comments[articleID], c)

	return c, nil
}

// Comment returns one comment of an article.
func (s *Store) Comment(articleID, commentID int) (Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.articles[articleID]; !ok {
		return Comment{}, ErrArticleNotFound
	}
	cs := s.comments[articleID]
	if commentID < 1 || commentID > len(cs) {
		return Comment{}, ErrCommentNotFound
	}

	return cs[commentID-1], nil
}
