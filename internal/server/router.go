package server

import (
	"auction-house/internal/access"
	handler "auction-house/services/auction/handler"

	"github.com/gin-gonic/gin"
)

// SetupRouter configures all Gin routes for the application
func SetupRouter(auctionHandler *handler.AuctionHandler, gate *access.Gate) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging
	router.Use(IdentityMiddleware)

	verified := RequireVerified(gate)

	bids := router.Group("/bids")
	{
		bids.POST("", verified, auctionHandler.PlaceBidHandler)
	}

	auctions := router.Group("/auctions")
	{
		auctions.GET("", auctionHandler.ListAuctionsHandler)
		auctions.GET("/:auction_id", auctionHandler.GetAuctionHandler)
		auctions.GET("/:auction_id/bids", auctionHandler.GetBidHistoryHandler)
	}

	submissions := router.Group("/submissions")
	{
		submissions.POST("", verified, auctionHandler.StartSubmissionHandler)
		submissions.POST("/input", verified, auctionHandler.SubmissionInputHandler)
		submissions.DELETE("/session", RequireActor, auctionHandler.CancelSubmissionHandler)
	}

	verification := router.Group("/verification")
	{
		verification.POST("/requests", RequireActor, auctionHandler.RequestVerificationHandler)
	}

	users := router.Group("/users")
	{
		users.GET("/:user_id/profile", auctionHandler.GetProfileHandler)
		users.GET("/:user_id/items", auctionHandler.GetUserItemsHandler)
		users.GET("/:user_id/bids", auctionHandler.GetUserBidsHandler)
	}

	leaderboard := router.Group("/leaderboard")
	{
		leaderboard.GET("/buyers", auctionHandler.TopBuyersHandler)
		leaderboard.GET("/sellers", auctionHandler.TopSellersHandler)
	}

	admin := router.Group("/admin", RequireAdmin(gate))
	{
		admin.POST("/submissions/:submission_id/approve", auctionHandler.ApproveSubmissionHandler)
		admin.POST("/submissions/:submission_id/reject", auctionHandler.RejectSubmissionHandler)
		admin.POST("/submissions/open", auctionHandler.OpenSubmissionsHandler)
		admin.POST("/submissions/close", auctionHandler.CloseSubmissionsHandler)

		admin.POST("/auctions/:auction_id/remove-bid", auctionHandler.RemoveLastBidHandler)
		admin.POST("/auctions/:auction_id/remove", auctionHandler.RemoveAuctionHandler)
		admin.POST("/auctions/open", auctionHandler.OpenAuctionsHandler)
		admin.POST("/close-auctions", auctionHandler.CloseAuctionsHandler)

		admin.POST("/verified", auctionHandler.VerifyUserHandler)
		admin.DELETE("/verified/:user_id", auctionHandler.UnverifyUserHandler)
		admin.GET("/verified", auctionHandler.ListVerifiedHandler)
		admin.GET("/verification-requests", auctionHandler.ListVerificationRequestsHandler)

		admin.POST("/broadcast", auctionHandler.BroadcastHandler)
		admin.GET("/integrity", auctionHandler.IntegrityHandler)
	}

	return router
}
