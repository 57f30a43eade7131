package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/zfogg/unify/internal/middleware"
	"github.com/zfogg/unify/internal/websocket"
)

// RouteOptions carries the middleware the router is assembled with
type RouteOptions struct {
	// Auth rejects anonymous requests; Optional only identifies the caller
	Auth     gin.HandlerFunc
	Optional gin.HandlerFunc
	// Limit builds a rate limiter; nil disables rate limiting
	Limit func(middleware.RateLimitConfig) gin.HandlerFunc
	// WebSocket is nil when realtime push is disabled
	WebSocket   *websocket.Handler
	Environment string
}

func (o RouteOptions) limit(cfg middleware.RateLimitConfig) gin.HandlerFunc {
	if o.Limit == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return o.Limit(cfg)
}

// RegisterRoutes mounts /health and the /api tree on r
func (h *Handlers) RegisterRoutes(r *gin.Engine, opts RouteOptions) {
	r.GET("/health", h.Health)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	{
		limited := authGroup.Group("", opts.limit(middleware.AuthRateLimitConfig()))
		limited.POST("/register", h.Register)
		limited.POST("/login", h.Login)
		limited.POST("/password/reset", h.RequestPasswordReset)
		limited.POST("/password/reset/confirm", h.ConfirmPasswordReset)

		authGroup.GET("/google", h.GoogleLogin)
		authGroup.GET("/google/callback", h.GoogleCallback)
		authGroup.GET("/me", opts.Auth, h.Me)
	}

	// public reads that personalise for signed-in callers
	public := api.Group("", opts.Optional)
	{
		public.GET("/search", opts.limit(middleware.SearchRateLimitConfig()), h.Search)
		public.GET("/search/stats", middleware.NonProduction(opts.Environment), h.GetSearchStats)
		public.GET("/users/:userId", h.GetUserProfile)
		public.GET("/users/:userId/photos", h.GetUserPhotos)
		public.GET("/groups/:id", h.GetGroup)
		public.GET("/pages/:id", h.GetPage)
		public.GET("/stories/published", h.GetPublishedStories)
	}

	authed := api.Group("", opts.Auth, opts.limit(middleware.DefaultRateLimitConfig()))

	friends := authed.Group("/friends")
	{
		friends.GET("", h.GetFriendsOverview)
		friends.PATCH("", h.RespondToFriendRequest)
		friends.DELETE("", h.RemoveFriend)
		friends.GET("/list", h.GetFriendsList)
		friends.GET("/suggestions", h.GetFriendSuggestions)
		friends.GET("/badges", h.GetFriendBadges)
		friends.POST("/request", h.SendFriendRequest)
		friends.POST("/add", h.SendFriendRequest)
		friends.POST("/request/cancel", h.CancelFriendRequest)
	}

	badges := authed.Group("/badges")
	{
		badges.GET("/friends", h.GetFriendsBadge)
		badges.GET("/groups", h.GetGroupsBadge)
		badges.GET("/notifications", h.GetNotificationsBadge)
		badges.GET("/messages", h.GetMessagesBadge)
	}
	authed.GET("/test/badges", middleware.NonProduction(opts.Environment), h.GetBadgeDiagnostics)

	messages := authed.Group("/messages")
	{
		messages.GET("", h.GetMessages)
		messages.POST("", h.SendMessage)
		messages.POST("/send", h.SendMessage)
		messages.POST("/read", h.MarkMessagesRead)
		messages.GET("/conversations", h.GetConversations)

		typing := messages.Group("/typing", opts.limit(middleware.TypingRateLimitConfig()))
		typing.GET("", h.GetTyping)
		typing.POST("", h.UpdateTyping)
	}

	groups := authed.Group("/groups")
	{
		groups.GET("", h.GetGroups)
		groups.POST("", h.CreateGroup)
		groups.POST("/join", h.JoinGroup)
		groups.DELETE("/join", h.LeaveGroup)
	}

	pages := authed.Group("/pages")
	{
		pages.GET("", h.GetPages)
		pages.POST("", h.CreatePage)
		pages.POST("/follow", h.FollowPage)
		pages.DELETE("/follow", h.UnfollowPage)
	}

	posts := authed.Group("/posts")
	{
		posts.GET("", h.GetFeed)
		posts.POST("", h.CreatePost)
		posts.GET("/:postId", h.GetPost)
		posts.DELETE("/:postId", h.DeletePost)
		posts.GET("/:postId/likes", h.GetPostLikes)
		posts.POST("/:postId/likes", h.TogglePostLike)

		comments := posts.Group("/:postId/comments")
		comments.GET("", h.GetComments)
		comments.POST("", h.CreateComment)
		comments.GET("/:commentId", h.GetComment)
		comments.PUT("/:commentId", h.UpdateComment)
		comments.DELETE("/:commentId", h.DeleteComment)
		comments.GET("/:commentId/replies", h.GetCommentReplies)
		comments.POST("/:commentId/replies", h.CreateCommentReply)
		comments.GET("/:commentId/reactions", h.GetCommentReactions)
		comments.POST("/:commentId/reactions", h.ToggleCommentReaction)
		comments.DELETE("/:commentId/reactions", h.DeleteCommentReaction)
	}

	stories := authed.Group("/stories")
	{
		stories.GET("", h.GetStories)
		stories.POST("", h.CreateStory)
		stories.GET("/:storyId", h.GetStory)
		stories.DELETE("/:storyId", h.DeleteStory)
		stories.POST("/:storyId/view", h.ViewStory)
		stories.POST("/:storyId/reactions", h.ReactToStory)
	}

	users := authed.Group("/users")
	{
		users.PUT("/me", h.UpdateMe)
		users.POST("/:userId/photos", h.AddUserPhoto)
		users.PUT("/:userId/photos/:photoId", h.UpdateUserPhoto)
		users.DELETE("/:userId/photos/:photoId", h.DeleteUserPhoto)
	}

	authed.POST("/upload", opts.limit(middleware.UploadRateLimitConfig()), h.UploadMedia)

	notifications := authed.Group("/notifications")
	{
		notifications.GET("", h.GetNotifications)
		notifications.POST("/read", h.MarkNotificationsRead)
		notifications.DELETE("/:id", h.DeleteNotification)
	}

	if opts.WebSocket != nil {
		// the auth middleware also reads ?token= for browsers that cannot set headers
		api.GET("/ws", opts.Auth, opts.WebSocket.HandleWebSocket)
		api.GET("/ws/stats", opts.Auth, middleware.NonProduction(opts.Environment), opts.WebSocket.HandleStats)
	}
}
