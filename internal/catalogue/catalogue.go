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

// Package catalogue is a demo API of articles with nested comments,
// routed through typed resources.
package catalogue

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	riverrors "rivaas.dev/restkit/errors"
	"rivaas.dev/restkit/metrics"
	"rivaas.dev/restkit/middleware/bodylimit"
	"rivaas.dev/restkit/resource"
	"rivaas.dev/restkit/router"
)

// DefaultMaxBodySize bounds article and comment bodies.
const DefaultMaxBodySize int64 = 1 << 20

// ErrInvalidBody is returned for a request body that is not valid JSON.
var ErrInvalidBody = errors.New("invalid request body")

// Articles is the collection root.
type Articles struct{}

// ResourcePattern implements resource.Describable.
func (Articles) ResourcePattern() string { return "/articles" }

// ArticleList lists articles, optionally filtered by tag.
type ArticleList struct {
	Articles
	Tag   *string `query:"tag"`
	Limit int     `query:"limit" default:"20" validate:"min=1,max=100"`
}

// ArticleRef identifies one article.
type ArticleRef struct {
	Articles
	ID int `path:"id" validate:"min=1"`
}

// ResourcePattern implements resource.Describable.
func (ArticleRef) ResourcePattern() string { return "/{id}" }

// Comments is the comment collection of an article.
type Comments struct {
	ArticleRef
}

// ResourcePattern implements resource.Describable.
func (Comments) ResourcePattern() string { return "/comments" }

// CommentList lists the comments of an article.
type CommentList struct {
	Comments
	Limit int `query:"limit" default:"50" validate:"min=1,max=200"`
}

// CommentRef identifies one comment of an article.
type CommentRef struct {
	Comments
	CommentID int `path:"cid" validate:"min=1"`
}

// ResourcePattern implements resource.Describable.
func (CommentRef) ResourcePattern() string { return "/{cid}" }

type articleView struct {
	Article
	Href     string `json:"href"`
	Comments string `json:"comments"`
}

type commentView struct {
	Comment
	Href string `json:"href"`
}

type newArticle struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`
}

type newComment struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

// Option configures [Register].
type Option func(*handlers)

// WithMetrics counts created articles and comments on rec as
// "catalogue.articles.created" and "catalogue.comments.created".
func WithMetrics(rec *metrics.Recorder) Option {
	return func(h *handlers) {
		h.metrics = rec
	}
}

// WithMaxBodySize changes the request body limit of the catalogue routes.
func WithMaxBodySize(n int64) Option {
	return func(h *handlers) {
		if n > 0 {
			h.maxBody = n
		}
	}
}

// Register mounts the catalogue below parent.
//
//	GET    /articles?tag=&limit=
//	POST   /articles
//	GET    /articles/{id}
//	DELETE /articles/{id}
//	GET    /articles/{id}/comments?limit=
//	POST   /articles/{id}/comments
//	GET    /articles/{id}/comments/{cid}
//
// Request bodies over 1MB, or the size set with [WithMaxBodySize], are
// answered with 413.
func Register(parent *router.Route, s *Store, opts ...Option) error {
	h := &handlers{store: s, maxBody: DefaultMaxBodySize}
	for _, opt := range opts {
		opt(h)
	}

	articles, err := resource.Register[Articles](parent)
	if err != nil {
		return err
	}
	articles.Use(bodylimit.New(bodylimit.WithLimit(h.maxBody)))

	return errors.Join(
		handle(resource.Get(parent, h.listArticles)),
		handle(resource.Post(parent, h.createArticle)),
		handle(resource.Get(parent, h.getArticle)),
		handle(resource.Delete(parent, h.deleteArticle)),
		handle(resource.Get(parent, h.listComments)),
		handle(resource.Post(parent, h.addComment)),
		handle(resource.Get(parent, h.getComment)),
	)
}

func handle(_ *router.Route, err error) error { return err }

type handlers struct {
	store   *Store
	metrics *metrics.Recorder
	maxBody int64
}

func (h *handlers) listArticles(c *router.Context, q ArticleList) {
	tag := ""
	if q.Tag != nil {
		tag = *q.Tag
	}
	list := h.store.List(tag, q.Limit)

	views := make([]articleView, 0, len(list))
	for _, a := range list {
		v, err := viewArticle(a)
		if err != nil {
			c.Fail(err)
			return
		}
		views = append(views, v)
	}
	h.json(c, http.StatusOK, map[string]any{"articles": views, "count": len(views)})
}

func (h *handlers) createArticle(c *router.Context, _ Articles) {
	var in newArticle
	if err := h.decodeBody(c, &in); err != nil {
		c.Fail(err)
		return
	}
	if strings.TrimSpace(in.Title) == "" {
		c.Fail(riverrors.WithStatus(errors.New("title is required"), http.StatusUnprocessableEntity))
		return
	}

	v, err := viewArticle(h.store.Create(Article{Title: in.Title, Body: in.Body, Tags: in.Tags}))
	if err != nil {
		c.Fail(err)
		return
	}
	h.count(c, "catalogue.articles.created", attribute.Int("tags", len(in.Tags)))
	c.Header("Location", v.Href)
	h.json(c, http.StatusCreated, v)
}

func (h *handlers) getArticle(c *router.Context, ref ArticleRef) {
	a, err := h.store.Get(ref.ID)
	if err != nil {
		c.Fail(err)
		return
	}
	v, err := viewArticle(a)
	if err != nil {
		c.Fail(err)
		return
	}
	h.json(c, http.StatusOK, v)
}

func (h *handlers) deleteArticle(c *router.Context, ref ArticleRef) {
	if err := h.store.Delete(ref.ID); err != nil {
		c.Fail(err)
		return
	}
	c.NoContent()
}

func (h *handlers) listComments(c *router.Context, q CommentList) {
	list, err := h.store.Comments(q.ID, q.Limit)
	if err != nil {
		c.Fail(err)
		return
	}

	views := make([]commentView, 0, len(list))
	for _, cm := range list {
		v, err := viewComment(cm)
		if err != nil {
			c.Fail(err)
			return
		}
		views = append(views, v)
	}
	h.json(c, http.StatusOK, map[string]any{"comments": views, "count": len(views)})
}

func (h *handlers) addComment(c *router.Context, ref Comments) {
	var in newComment
	if err := h.decodeBody(c, &in); err != nil {
		c.Fail(err)
		return
	}
	if strings.TrimSpace(in.Text) == "" {
		c.Fail(riverrors.WithStatus(errors.New("text is required"), http.StatusUnprocessableEntity))
		return
	}

	cm, err := h.store.AddComment(ref.ID, Comment{Author: in.Author, Text: in.Text})
	if err != nil {
		c.Fail(err)
		return
	}
	v, err := viewComment(cm)
	if err != nil {
		c.Fail(err)
		return
	}
	h.count(c, "catalogue.comments.created")
	c.Header("Location", v.Href)
	h.json(c, http.StatusCreated, v)
}

func (h *handlers) getComment(c *router.Context, ref CommentRef) {
	cm, err := h.store.Comment(ref.ID, ref.CommentID)
	if err != nil {
		c.Fail(err)
		return
	}
	v, err := viewComment(cm)
	if err != nil {
		c.Fail(err)
		return
	}
	h.json(c, http.StatusOK, v)
}

func (h *handlers) json(c *router.Context, status int, v any) {
	if err := c.JSON(status, v); err != nil {
		c.Logger().Error("failed to write response", "error", err)
	}
}

func (h *handlers) count(c *router.Context, name string, attrs ...attribute.KeyValue) {
	if h.metrics == nil {
		return
	}
	if err := h.metrics.IncrementCounter(c.RequestContext(), name, attrs...); err != nil {
		c.Logger().Warn("failed to count", "metric", name, "error", err)
	}
}

func (h *handlers) decodeBody(c *router.Context, v any) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, bodylimit.ErrBodyLimitExceeded) {
			return bodylimit.Error(h.maxBody)
		}

		return riverrors.WithStatus(fmt.Errorf("%w: %w", ErrInvalidBody, err), http.StatusBadRequest)
	}

	return nil
}

func viewArticle(a Article) (articleView, error) {
	ref := ArticleRef{ID: a.ID}
	href, err := resource.Href(ref)
	if err != nil {
		return articleView{}, err
	}
	comments, err := resource.Href(CommentList{Comments: Comments{ArticleRef: ref}, Limit: 50})
	if err != nil {
		return articleView{}, err
	}

	return articleView{Article: a, Href: href, Comments: comments}, nil
}

func viewComment(cm Comment) (commentView, error) {
	href, err := resource.Href(CommentRef{
		Comments:  Comments{ArticleRef: ArticleRef{ID: cm.ArticleID}},
		CommentID: cm.ID,
	})
	if err != nil {
		return commentView{}, err
	}

	return commentView{Comment: cm, Href: href}, nil
}
