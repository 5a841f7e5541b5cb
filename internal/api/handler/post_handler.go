package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/FreeRikato/classroom-api/internal/core/ports"
)

// PostRecorder observes post creation. The metrics package implements it.
type PostRecorder interface {
	PostCreated()
}

type nopPostRecorder struct{}

func (nopPostRecorder) PostCreated() {}

// PostHandler handles HTTP requests for posts and their comments.
type PostHandler struct {
	service  ports.PostService
	recorder PostRecorder
}

func NewPostHandler(service ports.PostService, recorder PostRecorder) *PostHandler {
	if recorder == nil {
		recorder = nopPostRecorder{}
	}
	return &PostHandler{service: service, recorder: recorder}
}

// Create handles POST /posts.
//
// @Summary      Create a post
// @Tags         posts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string             false  "Makes retries safe"
// @Param        body             body      createPostRequest  true   "Post"
// @Success      201              {object}  domain.Post
// @Failure      400              {object}  errorResponse
// @Failure      401              {object}  errorResponse
// @Router       /posts [post]
func (h *PostHandler) Create(c echo.Context) error {
	user, err := actor(c)
	if err != nil {
		return err
	}

	var req createPostRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	post, err := h.service.CreatePost(c.Request().Context(), user, ports.CreatePostInput{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		return err
	}
	h.recorder.PostCreated()

	return c.JSON(http.StatusCreated, post)
}

// List handles GET /posts.
//
// @Summary      List posts
// @Tags         posts
// @Produce      json
// @Param        skip    query     int     false  "Offset"           default(0)
// @Param        limit   query     int     false  "Page size 1..100" default(10)
// @Param        search  query     string  false  "Case-insensitive title filter"
// @Success      200     {array}   domain.Post
// @Failure      400     {object}  errorResponse
// @Router       /posts [get]
func (h *PostHandler) List(c echo.Context) error {
	skip, err := queryInt(c, "skip")
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}

	posts, err := h.service.ListPosts(c.Request().Context(), ports.ListPostsInput{
		Skip:   skip,
		Limit:  limit,
		Search: c.QueryParam("search"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, posts)
}

// Get handles GET /posts/:id.
//
// @Summary      Get a post with its comments
// @Tags         posts
// @Produce      json
// @Param        id   path      int  true  "Post ID"
// @Success      200  {object}  domain.PostWithComments
// @Failure      404  {object}  errorResponse
// @Router       /posts/{id} [get]
func (h *PostHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	post, err := h.service.GetPost(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, post)
}

// Update handles PUT /posts/:id. Only the author may update a post.
//
// @Summary      Update a post
// @Tags         posts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                true  "Post ID"
// @Param        body  body      updatePostRequest  true  "Fields to change"
// @Success      200   {object}  domain.Post
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /posts/{id} [put]
func (h *PostHandler) Update(c echo.Context) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req updatePostRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	post, err := h.service.UpdatePost(c.Request().Context(), user, id, ports.UpdatePostInput{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, post)
}

// Delete handles DELETE /posts/:id. Comments are removed with the post.
//
// @Summary      Delete a post
// @Tags         posts
// @Security     BearerAuth
// @Param        id  path  int  true  "Post ID"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /posts/{id} [delete]
func (h *PostHandler) Delete(c echo.Context) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.service.DeletePost(c.Request().Context(), user, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// CreateComment handles POST /posts/:id/comments.
//
// @Summary      Comment on a post
// @Tags         comments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string                false  "Makes retries safe"
// @Param        id               path      int                   true   "Post ID"
// @Param        body             body      createCommentRequest  true   "Comment"
// @Success      201              {object}  domain.Comment
// @Failure      404              {object}  errorResponse
// @Router       /posts/{id}/comments [post]
func (h *PostHandler) CreateComment(c echo.Context) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	postID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req createCommentRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	comment, err := h.service.CreateComment(c.Request().Context(), user, postID, req.Text)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, comment)
}

// ListComments handles GET /posts/:id/comments.
//
// @Summary      List comments of a post
// @Tags         comments
// @Produce      json
// @Param        id   path      int  true  "Post ID"
// @Success      200  {array}   domain.Comment
// @Failure      404  {object}  errorResponse
// @Router       /posts/{id}/comments [get]
func (h *PostHandler) ListComments(c echo.Context) error {
	postID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	comments, err := h.service.ListComments(c.Request().Context(), postID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, comments)
}

// DeleteComment handles DELETE /comments/:id. Only the comment's author may delete it.
//
// @Summary      Delete a comment
// @Tags         comments
// @Security     BearerAuth
// @Param        id  path  int  true  "Comment ID"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /comments/{id} [delete]
func (h *PostHandler) DeleteComment(c echo.Context) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.service.DeleteComment(c.Request().Context(), user, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
