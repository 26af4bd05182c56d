package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aweris/chirpy/internal/index"
	"github.com/aweris/chirpy/internal/service"
)

type credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *handler) register(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Users.Register(req.Username, req.Password); h.fail(c, err) {
		return
	}

	setSession(c, req.Username)
	c.JSON(http.StatusCreated, gin.H{"username": req.Username})
}

func (h *handler) login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Users.Authenticate(req.Username, req.Password); h.fail(c, err) {
		return
	}

	setSession(c, req.Username)
	c.JSON(http.StatusOK, gin.H{"username": req.Username})
}

func (h *handler) logout(c *gin.Context) {
	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

func (h *handler) changePassword(c *gin.Context) {
	var req struct {
		Current string `json:"current" binding:"required"`
		New     string `json:"new" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Users.ChangePassword(currentUser(c), req.Current, req.New); h.fail(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *handler) listUsers(c *gin.Context) {
	c.JSON(http.StatusOK, h.Users.List())
}

func (h *handler) userPosts(c *gin.Context) {
	username, ok := h.knownUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.Search.ByUser(username))
}

func (h *handler) userFollowing(c *gin.Context) {
	username, ok := h.knownUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.Follows.Following(username))
}

func (h *handler) userFollowers(c *gin.Context) {
	username, ok := h.knownUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.Follows.Followers(username))
}

func (h *handler) timeline(c *gin.Context) {
	c.JSON(http.StatusOK, h.Posts.All())
}

func (h *handler) followingTimeline(c *gin.Context) {
	c.JSON(http.StatusOK, h.Posts.Timeline(currentUser(c)))
}

func (h *handler) createPost(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post, err := h.Posts.Post(currentUser(c), req.Content)
	if h.fail(c, err) {
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *handler) follow(c *gin.Context) {
	target := c.Param("username")
	if err := h.Follows.Follow(currentUser(c), target); h.fail(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": target})
}

func (h *handler) unfollow(c *gin.Context) {
	target := c.Param("username")
	if err := h.Follows.Unfollow(currentUser(c), target); h.fail(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"unfollowed": target})
}

func (h *handler) search(c *gin.Context) {
	posts, err := h.Search.Query(c.Query("q"))
	if h.fail(c, err) {
		return
	}
	c.JSON(http.StatusOK, posts)
}

// requireUser rejects requests without a session for a registered user.
func (h *handler) requireUser(c *gin.Context) {
	username, err := c.Cookie(SessionCookie)
	if err != nil || !h.Users.Exists(username) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
		return
	}
	c.Set(SessionCookie, username)
	c.Next()
}

func (h *handler) knownUser(c *gin.Context) (string, bool) {
	username := c.Param("username")
	if !h.Users.Exists(username) {
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrUnknownUser.Error()})
		return "", false
	}
	return username, true
}

// fail writes the response for err and reports whether the handler should
// stop. Write-through failures are not fatal: the change is live, so the
// handler carries on and the response is marked as not durable.
func (h *handler) fail(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, index.ErrPersistence) {
		h.log.Warn("change not persisted", zap.String("path", c.FullPath()), zap.Error(err))
		c.Header(DurableHeader, "false")
		return false
	}

	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return true
	}
	c.JSON(status, gin.H{"error": err.Error()})
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidUsername),
		errors.Is(err, service.ErrInvalidPassword),
		errors.Is(err, service.ErrEmptyContent),
		errors.Is(err, service.ErrContentTooLong),
		errors.Is(err, service.ErrSelfFollow),
		errors.Is(err, service.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrUnknownUser),
		errors.Is(err, service.ErrNotFollowing):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUsernameTaken),
		errors.Is(err, service.ErrAlreadyFollowing):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func setSession(c *gin.Context, username string) {
	c.SetCookie(SessionCookie, username, 0, "/", "", false, true)
}

func currentUser(c *gin.Context) string {
	return c.GetString(SessionCookie)
}
