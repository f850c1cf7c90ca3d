package api

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/solpump/custodian/internal/handler"
)

// SetupRouter sets up router with handlers
func SetupRouter(walletHandler *handler.WalletHandler) http.Handler {
	mux := http.NewServeMux()

	// Swagger UI
	mux.HandleFunc("/swagger/", httpSwagger.WrapHandler)

	// Wallet custody endpoints
	mux.HandleFunc("GET /wallet/{userId}", walletHandler.View)
	mux.HandleFunc("POST /wallet/{userId}", walletHandler.Create)
	mux.HandleFunc("DELETE /wallet/{userId}", walletHandler.Delete)
	mux.HandleFunc("POST /wallet/{userId}/recover", walletHandler.Recover)
	mux.HandleFunc("POST /wallet/{userId}/active", walletHandler.SwitchActive)
	mux.HandleFunc("POST /wallet/{userId}/create-token", walletHandler.CreateToken)
	mux.HandleFunc("GET /wallet/{userId}/test-connection", walletHandler.TestConnection)

	return mux
}
