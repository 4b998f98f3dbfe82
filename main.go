package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"backend/internal/config"
	"backend/internal/database"
	"backend/internal/handlers"
	"backend/internal/middleware"
	"backend/internal/payment"
	"backend/internal/quota"
	"backend/internal/scheduler"
)

func main() {
	config.Load()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureUserIndexes(db); err != nil {
		log.Printf("user index warning: %v", err)
	}
	if err := database.EnsureOrderIndexes(db); err != nil {
		log.Printf("order index warning: %v", err)
	}
	if err := database.EnsurePreorderIndexes(db); err != nil {
		log.Printf("preorder index warning: %v", err)
	}
	if err := database.EnsureAllocationIndexes(db); err != nil {
		log.Printf("allocation index warning: %v", err)
	}
	if err := database.EnsureRefreshTokenIndexes(db); err != nil {
		log.Printf("refresh token index warning: %v", err)
	}

	gw := payment.New(payment.Config{
		BaseURL:    config.AppEnv.PaymentGatewayURL,
		MerchantID: config.AppEnv.PaymentMerchantID,
		Secret:     config.AppEnv.PaymentSecret,
		NotifyURL:  config.AppEnv.PaymentNotifyURL,
		ReturnURL:  config.AppEnv.PaymentReturnURL,
		Timeout:    config.AppEnv.PaymentGatewayTimeout,
	})

	q := quota.NewStore(db)
	ac := scheduler.NewAutoCancel(config.AppEnv.PreorderAutoCancelTTL, handlers.NewAutoCancelFire(db, q))

	r := gin.Default()

	r.POST("/auth/register", handlers.Register(db))
	r.POST("/auth/login", handlers.Login(
		db,
		config.AppEnv.JWTSecret,
		config.AppEnv.AccessTokenTTL,
		config.AppEnv.RefreshTokenTTL,
	))
	r.GET("/auth/me", middleware.UserAuth(config.AppEnv.JWTSecret), handlers.GetMe(db))
	r.POST("/auth/refresh", handlers.Refresh(
		db,
		config.AppEnv.JWTSecret,
		config.AppEnv.AccessTokenTTL,
		config.AppEnv.RefreshTokenTTL,
	))
	r.POST("/auth/logout", handlers.Logout(db))

	r.POST("/admin/login", handlers.AdminLogin(db, config.AppEnv.JWTSecret, config.AppEnv.AccessTokenTTL))

	r.GET("/products", handlers.GetProducts(db))
	r.GET("/products/campaign", handlers.GetCampaignProducts(db))
	r.GET("/products/preorderable", handlers.GetPreorderableProducts(db))
	r.GET("/categories", handlers.GetCategories(db))
	r.GET("/shipping/quote", handlers.GetShippingQuote())
	r.POST("/orders", handlers.CreateOrder(db, config.AppEnv.JWTSecret))

	r.POST("/payments/webhook", handlers.PaymentWebhook(db, gw, ac))

	user := r.Group("/user")
	user.Use(middleware.UserAuth(config.AppEnv.JWTSecret))
	{
		user.GET("/addresses", handlers.GetUserAddresses(db))
		user.POST("/addresses", handlers.CreateUserAddress(db))
		user.PUT("/addresses/:id", handlers.UpdateUserAddress(db))
		user.DELETE("/addresses/:id", handlers.DeleteUserAddress(db))

		user.GET("/favorites", handlers.GetUserFavorites(db))
		user.POST("/favorites", handlers.AddUserFavorite(db))
		user.DELETE("/favorites/:productId", handlers.DeleteUserFavorite(db))

		user.POST("/preorders", handlers.CreatePreorder(db, q, ac))
		user.GET("/preorders", handlers.GetMyPreorders(db))
		user.GET("/preorders/:id", handlers.GetMyPreorder(db))
		user.POST("/preorders/:id/payment", handlers.CreatePreorderPayment(db, gw))
		user.POST("/preorders/:id/cancel", handlers.CancelMyPreorder(db, q, ac))
		user.DELETE("/preorders/:id", handlers.HideMyPreorder(db))
	}

	admin := r.Group("/admin/api")
	admin.Use(middleware.AdminAuth(config.AppEnv.JWTSecret))
	{
		admin.GET("/me", func(c *gin.Context) {
			c.JSON(200, gin.H{"ok": true})
		})

		admin.GET("/products", handlers.GetAllProducts(db))
		admin.POST("/products", handlers.CreateProduct(db))
		admin.PUT("/products/:id", handlers.UpdateProduct(db))
		admin.DELETE("/products/:id", handlers.DeleteProduct(db))

		admin.GET("/categories", handlers.GetAllCategories(db))
		admin.POST("/categories", handlers.CreateCategory(db))
		admin.PUT("/categories/:id", handlers.UpdateCategory(db))
		admin.DELETE("/categories/:id", handlers.DeleteCategory(db))

		admin.GET("/orders", handlers.GetOrders(db))
		admin.PUT("/orders/:id/status", handlers.UpdateOrderStatus(db))
		admin.DELETE("/orders/:id", handlers.DeleteOrder(db))

		admin.GET("/preorders", handlers.GetAllPreorders(db))
		admin.PUT("/preorders/:id/status", handlers.AdminSetPreorderStatus(db, q, ac))
		admin.POST("/preorders/:id/force-delivered", handlers.AdminForceDelivered(db))
		admin.POST("/preorders/:id/payments", handlers.AdminAddPreorderPayment(db, ac))
		admin.POST("/preorders/:id/deposit-paid", handlers.AdminMarkDepositPaid(db, ac))
		admin.POST("/preorders/:id/paid-in-full", handlers.AdminMarkPaidInFull(db, ac))
		admin.PUT("/preorders/:id/fee-adjustment", handlers.AdminSetFeeAdjustment(db))
		admin.POST("/preorders/:id/cancel", handlers.AdminCancelPreorder(db, q, ac))
		admin.PUT("/preorders/:id/shipping", handlers.AdminUpdateShipping(db))
		admin.POST("/preorders/:id/dispute", handlers.AdminSetDispute(db, true))
		admin.DELETE("/preorders/:id/dispute", handlers.AdminSetDispute(db, false))
		admin.POST("/preorders/:id/return", handlers.AdminReturnAction(db))
		admin.POST("/preorders/:id/history", handlers.AdminAddPreorderHistory(db))
		admin.DELETE("/preorders/:id", handlers.AdminDeletePreorder(db))

		admin.PUT("/preorder-quotas", handlers.AdminSetPreorderQuota(q))
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}
