package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/milkman/internal/config"
	"github.com/mamadbah2/milkman/internal/domain/models"
)

// AccountHeader carries the id of the calling account.
const AccountHeader = "X-Account-ID"

const accountKey = "account"

// AccountResolver loads the stored state of an account.
type AccountResolver interface {
	ResolveAccount(ctx context.Context, id string, exempt, admin bool) (models.Account, error)
}

// AccountMiddleware rejects requests without an account id and stores the resolved
// account, with its exempt and admin flags taken from cfg, in the gin context.
func AccountMiddleware(resolver AccountResolver, cfg config.AccountsConfig, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(AccountHeader))
		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": AccountHeader + " header is required"})
			return
		}

		account, err := resolver.ResolveAccount(c.Request.Context(), id, cfg.IsExempt(id), cfg.IsAdmin(id))
		if err != nil {
			respondError(c, logger, err)
			c.Abort()
			return
		}

		c.Set(accountKey, account)
		c.Next()
	}
}

func accountFrom(c *gin.Context) models.Account {
	if v, ok := c.Get(accountKey); ok {
		if account, ok := v.(models.Account); ok {
			return account
		}
	}
	return models.Account{}
}
