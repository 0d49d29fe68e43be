package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/blog-platform/internal/model"
	"github.com/iliyamo/blog-platform/internal/queue"
	"github.com/iliyamo/blog-platform/internal/repository"
	"github.com/iliyamo/blog-platform/internal/search"
)

// PostHandler bundles dependencies for the blog content endpoints.
type PostHandler struct {
	Posts    *repository.PostRepo
	Comments *repository.CommentRepo
	Likes    *repository.LikeRepo
	Engine   search.Engine
}

func NewPostHandler(p *repository.PostRepo, c *repository.CommentRepo, l *repository.LikeRepo, e search.Engine) *PostHandler {
	return &PostHandler{Posts: p, Comments: c, Likes: l, Engine: e}
}

// ----- DTOs -----

type postReq struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`
}

type postResp struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Tags      []string  `json:"tags"`
	Likes     int64     `json:"likes"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type commentReq struct {
	Body string `json:"body"`
}

func (h *PostHandler) toResp(ctx context.Context, p model.Post) (postResp, error) {
	tags, err := h.Posts.TagsForPost(ctx, p.ID)
	if err != nil {
		return postResp{}, err
	}
	likes, err := h.Likes.Count(ctx, p.ID)
	if err != nil {
		return postResp{}, err
	}
	return postResp{
		ID:        p.ID.String(),
		AuthorID:  p.AuthorID.String(),
		Slug:      p.Slug,
		Title:     p.Title,
		Body:      p.Body,
		Tags:      tags,
		Likes:     likes,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}, nil
}

func mapRepoErr(c echo.Context, err error, action string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	default:
		log.Printf("posts: %s failed: %v", action, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": action + " failed"})
	}
}

// indexAndAnnounce pushes a post into the search engine and onto the
// broker. Both are best-effort: a dead broker or index must not fail
// the write that already committed.
func (h *PostHandler) indexAndAnnounce(ctx context.Context, p model.Post, tags []string) {
	snippet := p.Body
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	if err := h.Engine.IndexPost(ctx, search.Doc{ID: p.ID, Slug: p.Slug, Title: p.Title, Snippet: snippet}); err != nil {
		log.Printf("posts: index failed for %s: %v", p.ID, err)
	}
	_ = queue.PublishPostPublished(ctx, queue.PostPublishedEvent{
		PostID:      p.ID.String(),
		AuthorID:    p.AuthorID.String(),
		Slug:        p.Slug,
		Title:       p.Title,
		Tags:        tags,
		PublishedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// CreatePost handles POST /v1/posts (protected).
func (h *PostHandler) CreatePost(c echo.Context) error {
	uid, _, err := principal(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req postReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || strings.TrimSpace(req.Body) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and body required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Posts.Create(ctx, uid, req.Title, req.Body, req.Tags)
	if err != nil {
		return mapRepoErr(c, err, "create post")
	}
	h.indexAndAnnounce(ctx, p, req.Tags)

	resp, err := h.toResp(ctx, p)
	if err != nil {
		return mapRepoErr(c, err, "load post")
	}
	return c.JSON(http.StatusCreated, resp)
}

// GetPost handles GET /v1/posts/:slug (public).
func (h *PostHandler) GetPost(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Posts.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		return mapRepoErr(c, err, "load post")
	}
	resp, err := h.toResp(ctx, p)
	if err != nil {
		return mapRepoErr(c, err, "load post")
	}
	return c.JSON(http.StatusOK, resp)
}

// ListPosts handles GET /v1/posts (public, cached).
func (h *PostHandler) ListPosts(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("page_size"))

	ctx, cancel := reqCtx(c)
	defer cancel()

	posts, total, err := h.Posts.List(ctx, page, size)
	if err != nil {
		return mapRepoErr(c, err, "list posts")
	}
	items := make([]postResp, 0, len(posts))
	for _, p := range posts {
		resp, err := h.toResp(ctx, p)
		if err != nil {
			return mapRepoErr(c, err, "load post")
		}
		items = append(items, resp)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "total": total})
}

// SearchPosts handles GET /v1/search/posts (public).
func (h *PostHandler) SearchPosts(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("page_size"))

	ctx, cancel := reqCtx(c)
	defer cancel()

	docs, total, err := h.Engine.Search(ctx, search.Query{
		Text:     c.QueryParam("q"),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		log.Printf("posts: search failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "search failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": docs, "total": total})
}

// UpdatePost handles PUT /v1/posts/:id (protected, owner or admin).
func (h *PostHandler) UpdatePost(c echo.Context) error {
	uid, isAdmin, err := principal(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req postReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || strings.TrimSpace(req.Body) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and body required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Posts.Update(ctx, id, uid, isAdmin, req.Title, req.Body, req.Tags); err != nil {
		return mapRepoErr(c, err, "update post")
	}
	p, err := h.Posts.GetByID(ctx, id)
	if err != nil {
		return mapRepoErr(c, err, "load post")
	}
	h.indexAndAnnounce(ctx, p, req.Tags)

	resp, err := h.toResp(ctx, p)
	if err != nil {
		return mapRepoErr(c, err, "load post")
	}
	return c.JSON(http.StatusOK, resp)
}

// DeletePost handles DELETE /v1/posts/:id (protected, owner or admin).
func (h *PostHandler) DeletePost(c echo.Context) error {
	uid, isAdmin, err := principal(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Posts.SoftDelete(ctx, id, uid, isAdmin); err != nil {
		return mapRepoErr(c, err, "delete post")
	}
	if err := h.Engine.RemovePost(ctx, id); err != nil {
		log.Printf("posts: deindex failed for %s: %v", id, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CreateComment handles POST /v1/posts/:id/comments (protected).
func (h *PostHandler) CreateComment(c echo.Context) error {
	uid, _, err := principal(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req commentReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Body) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "body required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	cm, err := h.Comments.Create(ctx, postID, uid, strings.TrimSpace(req.Body))
	if err != nil {
		return mapRepoErr(c, err, "create comment")
	}
	return c.JSON(http.StatusCreated, cm)
}

// ListComments handles GET /v1/posts/:id/comments (public).
func (h *PostHandler) ListComments(c echo.Context) error {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Comments.ListByPost(ctx, postID)
	if err != nil {
		return mapRepoErr(c, err, "list comments")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// DeleteComment handles DELETE /v1/comments/:id (protected, author or admin).
func (h *PostHandler) DeleteComment(c echo.Context) error {
	uid, isAdmin, err := principal(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Comments.Delete(ctx, id, uid, isAdmin); err != nil {
		return mapRepoErr(c, err, "delete comment")
	}
	return c.NoContent(http.StatusNoContent)
}

// LikePost handles PUT /v1/posts/:id/like (protected, idempotent).
func (h *PostHandler) LikePost(c echo.Context) error {
	uid, _, err := principal(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Likes.Like(ctx, postID, uid); err != nil {
		return mapRepoErr(c, err, "like post")
	}
	return c.NoContent(http.StatusNoContent)
}

// UnlikePost handles DELETE /v1/posts/:id/like (protected, idempotent).
func (h *PostHandler) UnlikePost(c echo.Context) error {
	uid, _, err := principal(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Likes.Unlike(ctx, postID, uid); err != nil {
		return mapRepoErr(c, err, "unlike post")
	}
	return c.NoContent(http.StatusNoContent)
}
