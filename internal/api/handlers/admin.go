package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/jmoiron/sqlx"

	"github.com/scevolution/ladder/internal/admin"
	"github.com/scevolution/ladder/internal/config"
	"github.com/scevolution/ladder/internal/ladder"
)

// AdminLogin authenticates an admin uid + token pair and issues a JWT.
func AdminLogin(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			AdminUID int64  `json:"admin_uid"`
			Token    string `json:"token"`
		}
		if err := c.BindJSON(&req); err != nil || req.AdminUID <= 0 || req.Token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "admin_uid and token required"})
			return
		}

		account, err := admin.Authenticate(db, req.AdminUID, req.Token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		exp := time.Now().Add(time.Duration(cfg.SessionTimeoutMin) * time.Minute)
		claims := jwt.MapClaims{"admin_uid": account.AdminUID, "exp": exp.Unix()}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString([]byte(cfg.JWTSecret))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token": signed,
			"admin": gin.H{"admin_uid": account.AdminUID, "display_name": account.DisplayName},
		})
	}
}

// AdminAuthMiddleware validates the bearer JWT and sets admin_uid.
func AdminAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		token := strings.TrimPrefix(auth, "Bearer ")

		parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
			if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !parsed.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		uidF, ok := claims["admin_uid"].(float64)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set("admin_uid", int64(uidF))
		c.Next()
	}
}

func adminUID(c *gin.Context) int64 {
	v, _ := c.Get("admin_uid")
	uid, _ := v.(int64)
	return uid
}

// AdminResolve re-resolves a match to a fixed outcome.
func AdminResolve(svc *admin.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		matchID, ok := paramInt64(c, "id")
		if !ok {
			return
		}
		var req struct {
			Outcome string `json:"outcome"`
			Reason  string `json:"reason"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "outcome required"})
			return
		}
		outcome, err := admin.ParseOutcome(req.Outcome)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		resolution, err := svc.Resolve(matchID, outcome, adminUID(c), req.Reason)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"resolution": resolution})
	}
}

// AdminAdjustMMR applies add/subtract/set to one rating entry.
func AdminAdjustMMR(svc *admin.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := paramInt64(c, "uid")
		if !ok {
			return
		}
		var req struct {
			Race   string `json:"race"`
			Op     string `json:"op"`
			Value  int    `json:"value"`
			Reason string `json:"reason"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "race, op and value required"})
			return
		}
		adjustment, err := svc.AdjustMMR(adminUID(c), uid, ladder.Race(req.Race), admin.MMROp(req.Op), req.Value, req.Reason)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"adjustment": adjustment})
	}
}

// AdminBan flags a player and kicks them from the queue.
func AdminBan(svc *admin.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := paramInt64(c, "uid")
		if !ok {
			return
		}
		var req struct {
			Reason string `json:"reason"`
		}
		c.BindJSON(&req)
		if err := svc.Ban(adminUID(c), uid, req.Reason); err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"banned": true})
	}
}

// AdminUnban clears the ban flag.
func AdminUnban(svc *admin.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := paramInt64(c, "uid")
		if !ok {
			return
		}
		var req struct {
			Reason string `json:"reason"`
		}
		c.BindJSON(&req)
		if err := svc.Unban(adminUID(c), uid, req.Reason); err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"banned": false})
	}
}

// AdminResetAborts sets a player's remaining abort allowance.
func AdminResetAborts(svc *admin.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := paramInt64(c, "uid")
		if !ok {
			return
		}
		var req struct {
			Count  int    `json:"count"`
			Reason string `json:"reason"`
		}
		if err := c.BindJSON(&req); err != nil || req.Count < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "count required"})
			return
		}
		if err := svc.ResetAborts(adminUID(c), uid, req.Count, req.Reason); err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"remaining_aborts": req.Count})
	}
}

// AdminRemoveFromQueue kicks one player out of the queue.
func AdminRemoveFromQueue(svc *admin.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := paramInt64(c, "uid")
		if !ok {
			return
		}
		var req struct {
			Reason string `json:"reason"`
		}
		c.BindJSON(&req)
		removed := svc.RemoveFromQueue(adminUID(c), uid, req.Reason)
		c.JSON(http.StatusOK, gin.H{"removed": removed})
	}
}

// AdminClearQueue empties the matchmaking queue.
func AdminClearQueue(svc *admin.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Reason string `json:"reason"`
		}
		c.BindJSON(&req)
		uids := svc.ClearQueue(adminUID(c), req.Reason)
		c.JSON(http.StatusOK, gin.H{"removed": uids})
	}
}
