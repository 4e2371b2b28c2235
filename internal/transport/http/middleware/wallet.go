package httpmw

import (
	"context"
	"net/http"

	"github.com/monument-wall/wall-service/internal/domain"
)

type ctxKey string

const ctxKeyWallet ctxKey = "wallet"

// WalletMiddleware requires an X-Wallet-Address header. The wallet is
// the identity; signature verification happens at the chain, not here.
func WalletMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		addr := domain.NormalizeAddress(r.Header.Get("X-Wallet-Address"))
		if addr == "" {
			http.Error(w, `{"error":"missing X-Wallet-Address"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyWallet, addr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WalletFromCtx returns the normalized wallet address, or "".
func WalletFromCtx(ctx context.Context) string {
	if v := ctx.Value(ctxKeyWallet); v != nil {
		if addr, ok := v.(string); ok {
			return addr
		}
	}
	return ""
}
